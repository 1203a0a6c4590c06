package optimizer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSampler_EnumeratesExactlyOnce(t *testing.T) {
	sampler := NewGridSampler()
	study := NewStudy(StudyConfig{Sampler: sampler})

	var combos []string
	objective := func(tr *Trial) (float64, error) {
		x := tr.SuggestFloat("x", 10, 30, 10)
		y := tr.SuggestInt("y", 1, 4, 1)
		combos = append(combos, fmt.Sprintf("%.0f/%d", x, y))
		return 0, nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 12))
	require.Equal(t, 12, sampler.GridSize())

	seen := make(map[string]int)
	for _, c := range combos {
		seen[c]++
	}
	require.Len(t, seen, 12)
	for combo, count := range seen {
		assert.Equal(t, 1, count, combo)
	}
}

func TestGridSampler_FirstSeenVariesFastest(t *testing.T) {
	sampler := NewGridSampler()
	study := NewStudy(StudyConfig{Sampler: sampler})

	var xs []float64
	var ys []int
	objective := func(tr *Trial) (float64, error) {
		xs = append(xs, tr.SuggestFloat("x", 10, 30, 10))
		ys = append(ys, tr.SuggestInt("y", 1, 4, 1))
		return 0, nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 5))

	assert.Equal(t, []float64{10, 20, 30, 10, 20}, xs)
	assert.Equal(t, []int{1, 1, 1, 2, 2}, ys)
}

func TestGridSampler_WrapsPastGridSize(t *testing.T) {
	sampler := NewGridSampler()
	study := NewStudy(StudyConfig{Sampler: sampler})

	var combos []string
	objective := func(tr *Trial) (float64, error) {
		x := tr.SuggestFloat("x", 10, 30, 10)
		y := tr.SuggestInt("y", 1, 4, 1)
		combos = append(combos, fmt.Sprintf("%.0f/%d", x, y))
		return 0, nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 13))
	assert.Equal(t, combos[0], combos[12])
}

func TestGridSampler_SinglePointSpace(t *testing.T) {
	sampler := NewGridSampler()
	study := NewStudy(StudyConfig{Sampler: sampler})

	objective := func(tr *Trial) (float64, error) {
		return tr.SuggestFloat("fixed", 7, 7, 1), nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 3))
	assert.Equal(t, 1, sampler.GridSize())
	for _, tr := range study.Trials() {
		assert.Equal(t, 7.0, tr.Params["fixed"])
	}
}
