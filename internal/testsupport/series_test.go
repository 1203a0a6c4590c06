package testsupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCandles_Deterministic(t *testing.T) {
	a := RegimeSwitchingCandles(42)
	b := RegimeSwitchingCandles(42)

	require.Equal(t, len(a), len(b))
	assert.Equal(t, a, b, "same seed should reproduce the series exactly")

	c := RegimeSwitchingCandles(43)
	assert.NotEqual(t, a[100].Close, c[100].Close, "different seed should diverge")
}

func TestGenerateCandles_WellFormed(t *testing.T) {
	candles := RegimeSwitchingCandles(7)
	require.Len(t, candles, 2000)

	for i, c := range candles {
		assert.Greater(t, c.Low, 0.0, "bar %d: price must stay positive", i)
		assert.GreaterOrEqual(t, c.High, c.Open, "bar %d", i)
		assert.GreaterOrEqual(t, c.High, c.Close, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Open, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Close, "bar %d", i)
		assert.Greater(t, c.Volume, 0.0, "bar %d", i)
		assert.True(t, c.CloseTime.After(c.OpenTime), "bar %d", i)

		if i > 0 {
			assert.True(t, candles[i-1].OpenTime.Before(c.OpenTime),
				"bar %d: open times must be strictly increasing", i)
			assert.Equal(t, candles[i-1].Close, c.Open,
				"bar %d: bars must chain open to previous close", i)
		}
	}
}

func TestTrendingCandles_MovesDirectionally(t *testing.T) {
	candles := TrendingCandles(11, 1000)
	require.Len(t, candles, 1000)

	// First half rallies, second half declines.
	mid := candles[499].Close
	assert.Greater(t, mid, candles[0].Open*1.3, "rally leg should gain well over a third")
	assert.Less(t, candles[999].Close, mid*0.7, "decline leg should lose well over a third")
}

func TestSidewaysCandles_StaysRanged(t *testing.T) {
	candles := SidewaysCandles(13, 1000)
	require.Len(t, candles, 1000)

	for i, c := range candles {
		assert.Greater(t, c.Close, 70.0, "bar %d: mean reversion should hold the range", i)
		assert.Less(t, c.Close, 140.0, "bar %d: mean reversion should hold the range", i)
	}
}

func TestSeriesWrappers(t *testing.T) {
	s := RegimeSwitchingSeries(42)
	require.NotNil(t, s)
	assert.Equal(t, 2000, s.Len())
	assert.Equal(t, "SYNTH", s.Symbol)
	assert.Equal(t, "5m", s.Timeframe)
	assert.Equal(t, SeriesEpoch, s.Times[0])
}
