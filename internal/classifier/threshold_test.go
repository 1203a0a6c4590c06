package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
)

func thresholdParams() *optimization.ResolvedParams {
	return &optimization.ResolvedParams{
		Mode:            optimization.ModeSimple,
		ADXPeriod:       14,
		ADXThreshold:    25,
		SMAFastPeriod:   20,
		SMASlowPeriod:   100,
		RSIPeriod:       14,
		RSISidewaysLow:  40,
		RSISidewaysHigh: 60,
	}
}

func TestThreshold_Alignment(t *testing.T) {
	s := &market_data.Series{
		Close:  []float64{110, 90, 105, 110, 110, 100},
		Open:   make([]float64, 6),
		High:   make([]float64, 6),
		Low:    make([]float64, 6),
		Volume: make([]float64, 6),
	}
	set := indicators.Set{
		indicators.SeriesADX:     {30, 30, 20, 30, 30, 30},
		indicators.SeriesSMAFast: {105, 95, 100, 105, 105, 105},
		indicators.SeriesSMASlow: {100, 100, 100, 100, 100, 110},
		indicators.SeriesRSI:     {70, 30, 50, 70, 50, 70},
	}

	labels := NewThresholdClassifier().Classify(s, set, thresholdParams())
	require.Len(t, labels, 6)

	// Full bullish alignment: trend strength, price above fast, fast above slow.
	assert.Equal(t, regime.LabelBull, labels[0])
	// Mirror bearish alignment.
	assert.Equal(t, regime.LabelBear, labels[1])
	// ADX below threshold kills the trend read.
	assert.Equal(t, regime.LabelSideways, labels[2])
	assert.Equal(t, regime.LabelBull, labels[3])
	// Bullish alignment but RSI inside the sideways band is re-forced.
	assert.Equal(t, regime.LabelSideways, labels[4])
	// Bearish alignment needs RSI below the band; 70 fails it.
	assert.Equal(t, regime.LabelSideways, labels[5])
}

func TestThreshold_NarrowBandForcesSideways(t *testing.T) {
	s := &market_data.Series{
		Close:  []float64{110, 110, 110, 110, 110, 110},
		Open:   make([]float64, 6),
		High:   make([]float64, 6),
		Low:    make([]float64, 6),
		Volume: make([]float64, 6),
	}
	set := indicators.Set{
		indicators.SeriesADX:     {30, 30, 30, 30, 30, 30},
		indicators.SeriesSMAFast: {105, 105, 105, 105, 105, 105},
		indicators.SeriesSMASlow: {100, 100, 100, 100, 100, 100},
		indicators.SeriesRSI:     {70, 70, 70, 70, 70, 70},
		indicators.SeriesBBWidth: {1, 1, 10, 10, 1, 10},
	}

	p := thresholdParams()
	p.BBWidthPct = 50

	labels := NewThresholdClassifier().Classify(s, set, p)

	// Bars below the 50th width percentile squeeze back to sideways even
	// though every trend condition passes.
	assert.Equal(t, regime.LabelSideways, labels[0])
	assert.Equal(t, regime.LabelSideways, labels[1])
	assert.Equal(t, regime.LabelBull, labels[2])
	assert.Equal(t, regime.LabelBull, labels[3])
	assert.Equal(t, regime.LabelSideways, labels[4])
	assert.Equal(t, regime.LabelBull, labels[5])
}

func TestThreshold_NoRSIBand(t *testing.T) {
	s := &market_data.Series{
		Close:  []float64{110, 110},
		Open:   make([]float64, 2),
		High:   make([]float64, 2),
		Low:    make([]float64, 2),
		Volume: make([]float64, 2),
	}
	set := indicators.Set{
		indicators.SeriesADX:     {30, 30},
		indicators.SeriesSMAFast: {105, 105},
		indicators.SeriesSMASlow: {100, 100},
		indicators.SeriesRSI:     {50, 50},
	}

	p := thresholdParams()
	p.RSISidewaysLow = 0
	p.RSISidewaysHigh = 0

	// Without a configured band, mid-range RSI neither blocks nor re-forces.
	labels := NewThresholdClassifier().Classify(s, set, p)
	assert.Equal(t, regime.LabelBull, labels[0])
	assert.Equal(t, regime.LabelBull, labels[1])
}

func TestThreshold_WarmupNaN(t *testing.T) {
	nan := math.NaN()
	s := &market_data.Series{
		Close:  []float64{110, 110},
		Open:   make([]float64, 2),
		High:   make([]float64, 2),
		Low:    make([]float64, 2),
		Volume: make([]float64, 2),
	}
	set := indicators.Set{
		indicators.SeriesADX:     {nan, 30},
		indicators.SeriesSMAFast: {nan, 105},
		indicators.SeriesSMASlow: {nan, 100},
		indicators.SeriesRSI:     {nan, 70},
	}

	labels := NewThresholdClassifier().Classify(s, set, thresholdParams())
	assert.Equal(t, regime.LabelSideways, labels[0])
	assert.Equal(t, regime.LabelBull, labels[1])
}

func TestPercentile(t *testing.T) {
	vals := []float64{1, 1, 1, 10, 10, 10}
	assert.InDelta(t, 5.5, percentile(vals, 50), 1e-9)
	assert.Equal(t, 1.0, percentile(vals, 0))
	assert.Equal(t, 10.0, percentile(vals, 100))

	withNaN := []float64{math.NaN(), 5, math.NaN(), 15}
	assert.InDelta(t, 10, percentile(withNaN, 50), 1e-9)

	assert.True(t, math.IsNaN(percentile([]float64{math.NaN()}, 50)))
	assert.True(t, math.IsNaN(percentile(nil, 50)))
}
