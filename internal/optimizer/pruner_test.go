package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedAt seeds a study with completed trials reporting the given values
// at one step.
func completedAt(step int, values ...float64) *Study {
	study := NewStudy(StudyConfig{Seed: 1})
	for i, v := range values {
		study.trials = append(study.trials, FrozenTrial{
			Number:       i,
			State:        StateComplete,
			Value:        v,
			Intermediate: map[int]float64{step: v},
		})
	}
	return study
}

func reportAt(number, step int, value float64) FrozenTrial {
	return FrozenTrial{
		Number:       number,
		Intermediate: map[int]float64{step: value},
	}
}

func TestMedianPruner(t *testing.T) {
	study := completedAt(2, 1, 2, 3, 4, 5)
	pruner := NewMedianPruner()

	// Median of history is 3: strictly below prunes, at or above survives.
	assert.True(t, pruner.Prune(study, reportAt(5, 2, 2.9)))
	assert.False(t, pruner.Prune(study, reportAt(5, 2, 3.0)))
	assert.False(t, pruner.Prune(study, reportAt(5, 2, 4.5)))

	// No report yet: nothing to judge.
	assert.False(t, pruner.Prune(study, FrozenTrial{Number: 5}))
}

func TestMedianPruner_StartupAndWarmup(t *testing.T) {
	// Four completed trials is below the startup threshold of five.
	study := completedAt(2, 1, 2, 3, 4)
	assert.False(t, NewMedianPruner().Prune(study, reportAt(4, 2, 0.0)))

	// Reports below the warmup step never prune.
	study = completedAt(2, 1, 2, 3, 4, 5)
	warm := &MedianPruner{NStartupTrials: 1, NWarmupSteps: 3}
	assert.False(t, warm.Prune(study, reportAt(5, 2, 0.0)))
}

func TestMedianPruner_IgnoresUnfinishedHistory(t *testing.T) {
	study := completedAt(1, 10, 10, 10, 10, 10)
	study.trials = append(study.trials,
		FrozenTrial{Number: 5, State: StatePruned, Intermediate: map[int]float64{1: 0}},
		FrozenTrial{Number: 6, State: StateFailed, Intermediate: map[int]float64{1: 0}},
	)

	// Pruned and failed trials do not drag the median down.
	assert.True(t, NewMedianPruner().Prune(study, reportAt(7, 1, 5)))
}

func TestMedianPruner_EndToEnd(t *testing.T) {
	objective := func(tr *Trial) (float64, error) {
		tr.SuggestFloat("x", 0, 10, 1)
		v := float64(tr.Number())
		if tr.Number() == 6 {
			v = 1.0
		}
		tr.Report(1, v)
		if tr.ShouldPrune() {
			return 0, ErrPruned
		}
		return v, nil
	}

	study := NewStudy(StudyConfig{Pruner: NewMedianPruner(), Seed: 1})
	require.NoError(t, study.Optimize(context.Background(), objective, 8))

	trials := study.Trials()
	require.Len(t, trials, 8)

	// Trials 0-5 build history 0..5 (median 2.5). Trial 6 reports 1.0 and is
	// pruned keeping that value; trial 7 reports 7.0 and completes.
	assert.Equal(t, StatePruned, trials[6].State)
	assert.Equal(t, 1.0, trials[6].Value)
	assert.Equal(t, StateComplete, trials[7].State)
	assert.Equal(t, 7.0, trials[7].Value)
}

func TestSuccessiveHalvingPruner(t *testing.T) {
	study := completedAt(1, 9, 8, 7, 6, 5, 4, 3, 2, 1)
	pruner := NewSuccessiveHalvingPruner()

	// Top third of nine values survives: cutoff is 7.
	assert.True(t, pruner.Prune(study, reportAt(9, 1, 6.9)))
	assert.False(t, pruner.Prune(study, reportAt(9, 1, 7.0)))

	// Below the minimum resource nothing prunes.
	late := &SuccessiveHalvingPruner{MinResource: 2, Reduction: 3}
	assert.False(t, late.Prune(study, reportAt(9, 1, 0.0)))
}

func TestSuccessiveHalvingPruner_NeedsHistory(t *testing.T) {
	study := completedAt(1, 9, 8)
	assert.False(t, NewSuccessiveHalvingPruner().Prune(study, reportAt(2, 1, 0.0)))
}

func TestHyperbandPruner_BracketsByTrialNumber(t *testing.T) {
	study := completedAt(1, 10, 5, 1)
	pruner := NewHyperbandPruner(1, 9, 3)

	// Bracket 0 starts pruning at step 1; bracket 1 not before step 3. The
	// same report either prunes or passes depending on the trial's bracket.
	assert.True(t, pruner.Prune(study, reportAt(0, 1, 5)))
	assert.False(t, pruner.Prune(study, reportAt(1, 1, 5)))
}

func TestLastReport(t *testing.T) {
	step, value, ok := lastReport(FrozenTrial{
		Intermediate: map[int]float64{1: 5, 4: 9, 2: 7},
	})
	require.True(t, ok)
	assert.Equal(t, 4, step)
	assert.Equal(t, 9.0, value)

	_, _, ok = lastReport(FrozenTrial{})
	assert.False(t, ok)
}

func TestMedianAndCutoff(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))

	// eta=2 keeps the top ceil(5/2)=3 values; the cutoff is the third best.
	assert.Equal(t, 3.0, topShareCutoff([]float64{5, 1, 4, 2, 3}, 2))
}
