package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/regime"
)

// fvec builds a feature vector with every dimension at v and a jitter offset
// on the first one.
func fvec(v, jitter float64) []float64 {
	f := make([]float64, featureDim)
	for d := range f {
		f[d] = v
	}
	f[0] += jitter
	return f
}

// ar1Returns generates an AR(1) return series. Positive phi produces a
// trend-persistent series, negative phi a mean-reverting one.
func ar1Returns(seed int64, n int, phi float64) []float64 {
	r := rand.New(rand.NewSource(seed))
	rets := make([]float64, n)
	prev := 0.0
	for i := range rets {
		prev = phi*prev + r.NormFloat64()*0.01
		rets[i] = prev
	}
	return rets
}

func ar1Closes(seed int64, n int, phi float64) []float64 {
	rets := ar1Returns(seed, n-1, phi)
	closes := make([]float64, n)
	closes[0] = 100
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * math.Exp(rets[i-1])
	}
	return closes
}

func repeatLabels(l regime.Label, n int) []regime.Label {
	out := make([]regime.Label, n)
	for i := range out {
		out[i] = l
	}
	return out
}

func TestCoverage(t *testing.T) {
	e := NewEngine(Config{})
	cfg := Config{}.resolve(300)

	// Perfectly balanced thirds: full balance, one third lost to fallback.
	labels := append(repeatLabels(regime.LabelBull, 100),
		append(repeatLabels(regime.LabelBear, 100),
			repeatLabels(regime.LabelSideways, 100)...)...)
	assert.InDelta(t, 2.0/3.0, e.coverage(cfg, labels), 1e-9)

	// Everything fallback: nothing covered.
	assert.Equal(t, 0.0, e.coverage(cfg, repeatLabels(regime.LabelSideways, 300)))

	// Everything one trend class: maximal imbalance cancels full coverage.
	assert.Equal(t, 0.0, e.coverage(cfg, repeatLabels(regime.LabelBull, 300)))

	assert.Equal(t, 0.0, e.coverage(cfg, nil))
}

func TestCoherence(t *testing.T) {
	e := NewEngine(Config{})
	cfg := Config{}.resolve(300)

	// One unbroken segment: perfect rate and self-transition, duration term
	// saturating toward 1.
	constant := repeatLabels(regime.LabelBull, 300)
	want := (1 + 300.0/320.0 + 1) / 3
	assert.InDelta(t, want, e.coherence(cfg, constant), 1e-9)

	// Per-bar flicker: rate blown out, duration 1, never self-transitions.
	alternating := make([]regime.Label, 300)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = regime.LabelBull
		} else {
			alternating[i] = regime.LabelBear
		}
	}
	want = (0 + 1.0/21.0 + 0) / 3
	assert.InDelta(t, want, e.coherence(cfg, alternating), 1e-9)

	assert.Equal(t, neutralScore, e.coherence(cfg, []regime.Label{regime.LabelBull}))
}

func TestSeparability(t *testing.T) {
	e := NewEngine(Config{})

	// Two tight clusters far apart.
	features := make([][]float64, 0, 40)
	for i := 0; i < 20; i++ {
		features = append(features, fvec(0, jitterSign(i)))
	}
	for i := 0; i < 20; i++ {
		features = append(features, fvec(10, jitterSign(i)))
	}

	aligned := append(repeatLabels(regime.LabelBull, 20), repeatLabels(regime.LabelBear, 20)...)
	alignedScore := e.separability(features, aligned)
	assert.Greater(t, alignedScore, 0.9)

	// Labels orthogonal to the clusters collapse the between-group distance.
	shuffled := make([]regime.Label, 40)
	for i := range shuffled {
		if i%2 == 0 {
			shuffled[i] = regime.LabelBull
		} else {
			shuffled[i] = regime.LabelBear
		}
	}
	shuffledScore := e.separability(features, shuffled)
	assert.Less(t, shuffledScore, 0.4)
	assert.Less(t, shuffledScore, alignedScore)

	// Degenerate groupings stay neutral.
	assert.Equal(t, neutralScore, e.separability(features, repeatLabels(regime.LabelBull, 40)))
	tiny := [][]float64{fvec(0, 0), fvec(10, 0), fvec(0, 0)}
	tinyLabels := []regime.Label{regime.LabelBull, regime.LabelBear, regime.LabelBull}
	assert.Equal(t, neutralScore, e.separability(tiny, tinyLabels))
}

func jitterSign(i int) float64 {
	if i%2 == 0 {
		return 0.1
	}
	return -0.1
}

func TestBoundary(t *testing.T) {
	e := NewEngine(Config{})

	features := make([][]float64, 100)
	for i := range features {
		if i < 50 {
			features[i] = fvec(0, 0)
		} else {
			features[i] = fvec(10, 0)
		}
	}

	// Label change exactly at the feature jump: all signal, no drift.
	aligned := append(repeatLabels(regime.LabelBull, 50), repeatLabels(regime.LabelBear, 50)...)
	assert.InDelta(t, 1.0, e.boundary(features, aligned), 1e-9)

	// Label change where nothing happens, feature jump inside a segment.
	misaligned := append(repeatLabels(regime.LabelBull, 30), repeatLabels(regime.LabelBear, 70)...)
	assert.InDelta(t, 0.0, e.boundary(features, misaligned), 1e-9)

	// Featureless data cannot distinguish jumps from drift.
	flat := make([][]float64, 100)
	for i := range flat {
		flat[i] = fvec(1, 0)
	}
	assert.Equal(t, neutralScore, e.boundary(flat, aligned))

	// No boundaries at all.
	assert.Equal(t, neutralScore, e.boundary(features, repeatLabels(regime.LabelBull, 100)))
}

func TestFidelity(t *testing.T) {
	e := NewEngine(Config{})
	n := 600

	persistent := ar1Closes(11, n, 0.9)
	reverting := ar1Closes(12, n, -0.9)

	// Trend-persistent prices labeled as trend score above neutral; the same
	// prices labeled sideways score below it, and vice versa.
	assert.Greater(t, e.fidelity(persistent, repeatLabels(regime.LabelBull, n)), 0.5)
	assert.Less(t, e.fidelity(persistent, repeatLabels(regime.LabelSideways, n)), 0.5)
	assert.Greater(t, e.fidelity(reverting, repeatLabels(regime.LabelSideways, n)), 0.5)
	assert.Less(t, e.fidelity(reverting, repeatLabels(regime.LabelBear, n)), 0.5)

	// Too few samples for the estimator: neutral.
	short := ar1Closes(13, 10, 0.9)
	assert.Equal(t, neutralScore, e.fidelity(short, repeatLabels(regime.LabelBull, 10)))

	// Non-positive closes produce no usable returns.
	zeros := make([]float64, 100)
	assert.Equal(t, neutralScore, e.fidelity(zeros, repeatLabels(regime.LabelBull, 100)))
}

func TestBuildFeatures(t *testing.T) {
	n := 30
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i := range closes {
		closes[i] = 100
		vols[i] = 1000
	}
	closes[25] = 110
	copy(highs, closes)
	copy(lows, closes)

	s := &market_data.Series{High: highs, Low: lows, Close: closes, Volume: vols}
	features := buildFeatures(s, 20, 10)

	require.Len(t, features, 10)
	for _, f := range features {
		require.Len(t, f, featureDim)
	}

	// Flat bar: every feature zero.
	for d := 0; d < featureDim; d++ {
		assert.Equal(t, 0.0, features[0][d])
	}

	// The spike bar shows up as a positive return with non-zero volatility,
	// the bar after as a negative return.
	assert.InDelta(t, 0.1, features[5][0], 1e-9)
	assert.Greater(t, features[5][1], 0.0)
	assert.Less(t, features[6][0], 0.0)
}

func TestStandardize(t *testing.T) {
	features := [][]float64{
		{1, 7, 0, 0, 0},
		{2, 7, 0, 0, 0},
		{3, 7, 0, 0, 0},
		{4, 7, 0, 0, 0},
	}
	standardize(features)

	col := []float64{features[0][0], features[1][0], features[2][0], features[3][0]}
	assert.InDelta(t, 0.0, mean(col), 1e-9)
	assert.InDelta(t, 1.0, stdDev(col), 1e-9)

	// Constant columns zero out instead of dividing by zero.
	for i := range features {
		assert.Equal(t, 0.0, features[i][1])
	}

	standardize(nil)
}
