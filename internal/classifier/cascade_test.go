package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
)

func cascadeParams() *optimization.ResolvedParams {
	return &optimization.ResolvedParams{
		Mode:            optimization.ModeLegacy,
		ADXPeriod:       14,
		ADXTrending:     25,
		ADXWeak:         15,
		DIDiffThreshold: 5,
		RSIStrongBull:   65,
		RSIStrongBear:   35,
		StrongMovePct:   5,
		ExtremeMovePct:  10,
	}
}

func TestCascade_PassOrder(t *testing.T) {
	nan := math.NaN()
	set := indicators.Set{
		indicators.SeriesADX:            {nan, 30, 30, 18, 12, 25, 10, 30, 30},
		indicators.SeriesDIDiff:         {nan, 6, -6, 0, 0, 0, 0, -6, 6},
		indicators.SeriesRSI:            {nan, 50, 50, 70, 70, 50, 50, 50, 50},
		indicators.SeriesPriceChangePct: {nan, 0, 0, 0, 0, 0, 6, 12, -12},
	}
	s := barSeries(9)

	labels := NewCascadeClassifier().Classify(s, set, cascadeParams())
	require.Len(t, labels, 9)

	// Warmup NaN fails every comparison.
	assert.Equal(t, regime.LabelSideways, labels[0])
	// Trending ADX with directional DI confirmation.
	assert.Equal(t, regime.LabelBull, labels[1])
	assert.Equal(t, regime.LabelBear, labels[2])
	// Borderline ADX band, strong RSI decides.
	assert.Equal(t, regime.LabelBull, labels[3])
	// ADX below the weak cutoff: strong RSI alone is not enough.
	assert.Equal(t, regime.LabelSideways, labels[4])
	// Trending ADX without DI direction stays sideways.
	assert.Equal(t, regime.LabelSideways, labels[5])
	// Strong move with unconfirmed ADX.
	assert.Equal(t, regime.LabelBull, labels[6])
	// An extreme move overrides even a confirmed opposite trend, both ways.
	assert.Equal(t, regime.LabelBull, labels[7])
	assert.Equal(t, regime.LabelBear, labels[8])
}

func TestCascade_ExtremeFallsBackToStrong(t *testing.T) {
	nan := math.NaN()
	set := indicators.Set{
		indicators.SeriesADX:            {nan, 30, 30},
		indicators.SeriesDIDiff:         {nan, -6, -6},
		indicators.SeriesRSI:            {nan, 50, 50},
		indicators.SeriesPriceChangePct: {nan, 6, 4},
	}
	s := barSeries(3)

	p := cascadeParams()
	p.ExtremeMovePct = 0 // strong threshold stands in

	labels := NewCascadeClassifier().Classify(s, set, p)
	// Move 6 clears the stand-in extreme threshold 5 and beats the bear trend.
	assert.Equal(t, regime.LabelBull, labels[1])
	// Move 4 does not; the DI trend read stands.
	assert.Equal(t, regime.LabelBear, labels[2])
}

func TestCascade_MoveOverridesDisabled(t *testing.T) {
	nan := math.NaN()
	set := indicators.Set{
		indicators.SeriesADX:            {nan, 10},
		indicators.SeriesDIDiff:         {nan, 0},
		indicators.SeriesRSI:            {nan, 50},
		indicators.SeriesPriceChangePct: {nan, 50},
	}
	s := barSeries(2)

	p := cascadeParams()
	p.StrongMovePct = 0
	p.ExtremeMovePct = 0

	labels := NewCascadeClassifier().Classify(s, set, p)
	// With both move thresholds off, even a huge move cannot flip the label.
	assert.Equal(t, regime.LabelSideways, labels[1])
}

func TestCascade_Labels(t *testing.T) {
	labels := NewCascadeClassifier().Labels()
	require.Len(t, labels, 3)
	// The fallback label comes last.
	assert.Equal(t, regime.LabelSideways, labels[len(labels)-1])
}
