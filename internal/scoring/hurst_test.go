package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHurstExponent_TooShort(t *testing.T) {
	_, ok := hurstExponent(make([]float64, hurstMinSamples-1))
	assert.False(t, ok)
}

func TestHurstExponent_DegenerateVariance(t *testing.T) {
	constant := make([]float64, 128)
	for i := range constant {
		constant[i] = 0.01
	}
	_, ok := hurstExponent(constant)
	assert.False(t, ok)
}

func TestHurstExponent_RandomWalk(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	rets := make([]float64, 1024)
	for i := range rets {
		rets[i] = r.NormFloat64() * 0.01
	}

	h, ok := hurstExponent(rets)
	require.True(t, ok)
	assert.InDelta(t, 0.5, h, 0.15)
}

func TestHurstExponent_Persistence(t *testing.T) {
	persistent, ok := hurstExponent(ar1Returns(21, 1024, 0.9))
	require.True(t, ok)
	assert.Greater(t, persistent, 0.55)

	reverting, ok := hurstExponent(ar1Returns(22, 1024, -0.9))
	require.True(t, ok)
	assert.Less(t, reverting, 0.45)

	assert.Greater(t, persistent, reverting)
}

func TestHurstExponent_Bounds(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		h, ok := hurstExponent(ar1Returns(seed, 512, 0.5))
		require.True(t, ok)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 1.0)
	}
}

func TestAggregate(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, []float64{1.5, 3.5, 5.5}, aggregate(vals, 2))
	assert.Equal(t, []float64{2, 5}, aggregate(vals, 3))
	assert.Equal(t, vals, aggregate(vals, 1))
}

func TestLinearSlope(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{3, 5, 7, 9}
	m, ok := linearSlope(x, y)
	require.True(t, ok)
	assert.InDelta(t, 2.0, m, 1e-9)

	_, ok = linearSlope([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.False(t, ok)
}
