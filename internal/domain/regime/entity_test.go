package regime

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel_Base(t *testing.T) {
	assert.Equal(t, BaseBull, LabelBull.Base())
	assert.Equal(t, BaseBear, LabelBear.Base())
	assert.Equal(t, BaseSideways, LabelSideways.Base())

	// JSON rule sets declare arbitrary ids; grouping goes by substring.
	assert.Equal(t, BaseBull, Label("TF_BULL").Base())
	assert.Equal(t, BaseBull, Label("strong_bull_breakout").Base())
	assert.Equal(t, BaseBear, Label("TREND_BEAR").Base())
	assert.Equal(t, BaseSideways, Label("CHOP").Base())
	assert.Equal(t, BaseSideways, Label("TREND_UP").Base())
	assert.Equal(t, BaseSideways, Label("").Base())
}

func TestLabel_TrendLike(t *testing.T) {
	assert.True(t, Label("TREND_UP").TrendLike())
	assert.True(t, Label("TF_STRONG").TrendLike())
	assert.True(t, Label("trending").TrendLike())

	// Directional labels are never trend-like even with the prefix.
	assert.False(t, Label("TREND_BULL").TrendLike())
	assert.False(t, Label("TF_BEAR").TrendLike())
	assert.False(t, LabelSideways.TrendLike())
	assert.False(t, Label("CHOP").TrendLike())
}

func TestBaseType_Valid(t *testing.T) {
	assert.True(t, BaseBull.Valid())
	assert.True(t, BaseBear.Valid())
	assert.True(t, BaseSideways.Valid())
	assert.False(t, BaseType("trending").Valid())
	assert.False(t, BaseType("").Valid())
}

func TestPeriodsFromLabels(t *testing.T) {
	labels := []Label{
		LabelBull, LabelBull, LabelBull,
		LabelSideways,
		LabelBear, LabelBear,
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(labels))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	periods := PeriodsFromLabels(labels, times)
	require.Len(t, periods, 3)

	assert.Equal(t, LabelBull, periods[0].Label)
	assert.Equal(t, BaseBull, periods[0].Base)
	assert.Equal(t, 0, periods[0].StartIdx)
	assert.Equal(t, 2, periods[0].EndIdx)
	assert.Equal(t, 3, periods[0].Bars)
	assert.Equal(t, times[0], periods[0].StartTime)
	assert.Equal(t, times[2], periods[0].EndTime)

	assert.Equal(t, LabelSideways, periods[1].Label)
	assert.Equal(t, 1, periods[1].Bars)

	assert.Equal(t, LabelBear, periods[2].Label)
	assert.Equal(t, 4, periods[2].StartIdx)
	assert.Equal(t, 5, periods[2].EndIdx)
}

func TestPeriodsFromLabels_Edges(t *testing.T) {
	assert.Nil(t, PeriodsFromLabels(nil, nil))
	assert.Nil(t, PeriodsFromLabels([]Label{}, nil))

	single := PeriodsFromLabels([]Label{LabelBull}, nil)
	require.Len(t, single, 1)
	assert.Equal(t, 1, single[0].Bars)
	assert.True(t, single[0].StartTime.IsZero())

	uniform := PeriodsFromLabels([]Label{LabelBear, LabelBear, LabelBear, LabelBear}, nil)
	require.Len(t, uniform, 1)
	assert.Equal(t, 4, uniform[0].Bars)

	alternating := PeriodsFromLabels([]Label{LabelBull, LabelBear, LabelBull, LabelBear}, nil)
	assert.Len(t, alternating, 4)
}

// The period list must be a lossless partition for any label sequence:
// gapless, non-overlapping, bar counts summing to the input length, and each
// period internally uniform with different neighbors.
func TestPeriodsFromLabels_LosslessPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []Label{LabelBull, LabelBear, LabelSideways, Label("TF_BULL")}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(300)
		labels := make([]Label, n)
		for i := range labels {
			labels[i] = pool[rng.Intn(len(pool))]
		}

		periods := PeriodsFromLabels(labels, nil)
		require.NotEmpty(t, periods)

		totalBars := 0
		prevEnd := -1
		for i, p := range periods {
			assert.Equal(t, prevEnd+1, p.StartIdx, "periods must be gapless")
			assert.GreaterOrEqual(t, p.EndIdx, p.StartIdx)
			assert.Equal(t, p.EndIdx-p.StartIdx+1, p.Bars)

			for j := p.StartIdx; j <= p.EndIdx; j++ {
				assert.Equal(t, p.Label, labels[j])
			}
			if i > 0 {
				assert.NotEqual(t, periods[i-1].Label, p.Label, "adjacent periods must differ")
			}

			totalBars += p.Bars
			prevEnd = p.EndIdx
		}
		assert.Equal(t, n, totalBars)
		assert.Equal(t, n-1, prevEnd)

		// Reconstructing the label series from periods gives back the input.
		rebuilt := make([]Label, 0, n)
		for _, p := range periods {
			for j := 0; j < p.Bars; j++ {
				rebuilt = append(rebuilt, p.Label)
			}
		}
		assert.Equal(t, labels, rebuilt)

		assert.Equal(t, len(periods)-1, Switches(labels))
	}
}

func TestSwitches(t *testing.T) {
	assert.Equal(t, 0, Switches(nil))
	assert.Equal(t, 0, Switches([]Label{LabelBull}))
	assert.Equal(t, 0, Switches([]Label{LabelBull, LabelBull, LabelBull}))
	assert.Equal(t, 2, Switches([]Label{LabelBull, LabelBear, LabelBull}))
	assert.Equal(t, 3, Switches([]Label{LabelBull, LabelBear, LabelBear, LabelSideways, LabelBull}))
}
