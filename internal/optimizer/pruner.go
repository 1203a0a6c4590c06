package optimizer

import (
	"math"
	"sort"
)

// MedianPruner prunes a trial whose reported value at a step falls below
// the median of completed trials' values at the same step.
type MedianPruner struct {
	// NStartupTrials disables pruning until this many trials completed.
	NStartupTrials int
	// NWarmupSteps disables pruning for reports at steps below this.
	NWarmupSteps int
}

// NewMedianPruner creates a median pruner with the usual defaults.
func NewMedianPruner() *MedianPruner {
	return &MedianPruner{NStartupTrials: 5}
}

// Prune implements Pruner.
func (p *MedianPruner) Prune(study *Study, trial FrozenTrial) bool {
	step, value, ok := lastReport(trial)
	if !ok || step < p.NWarmupSteps {
		return false
	}
	history := study.intermediateAt(step)
	if len(history) < p.NStartupTrials {
		return false
	}
	return value < median(history)
}

// SuccessiveHalvingPruner implements asynchronous successive halving: at
// each rung only the top 1/Reduction share of observed values survives.
type SuccessiveHalvingPruner struct {
	// MinResource is the smallest step at which pruning may trigger.
	MinResource int
	// Reduction is the halving rate (eta). Default 3 when zero.
	Reduction int
}

// NewSuccessiveHalvingPruner creates an ASHA pruner.
func NewSuccessiveHalvingPruner() *SuccessiveHalvingPruner {
	return &SuccessiveHalvingPruner{MinResource: 1, Reduction: 3}
}

// Prune implements Pruner.
func (p *SuccessiveHalvingPruner) Prune(study *Study, trial FrozenTrial) bool {
	eta := p.Reduction
	if eta < 2 {
		eta = 3
	}
	step, value, ok := lastReport(trial)
	if !ok || step < p.MinResource {
		return false
	}
	history := study.intermediateAt(step)
	if len(history) < eta {
		return false
	}
	return value < topShareCutoff(history, eta)
}

// HyperbandPruner spreads trials across brackets of successive-halving
// pruners with geometrically growing minimum resources, so some trials are
// pruned aggressively while others always run to completion.
type HyperbandPruner struct {
	brackets []*SuccessiveHalvingPruner
}

// NewHyperbandPruner builds brackets covering [minResource, maxResource]
// with the given reduction factor.
func NewHyperbandPruner(minResource, maxResource, reduction int) *HyperbandPruner {
	if minResource < 1 {
		minResource = 1
	}
	if reduction < 2 {
		reduction = 3
	}
	if maxResource < minResource {
		maxResource = minResource
	}

	var brackets []*SuccessiveHalvingPruner
	for r := minResource; ; r *= reduction {
		brackets = append(brackets, &SuccessiveHalvingPruner{
			MinResource: r,
			Reduction:   reduction,
		})
		if r >= maxResource {
			break
		}
	}
	return &HyperbandPruner{brackets: brackets}
}

// Prune implements Pruner: the trial's bracket is fixed by its number.
func (p *HyperbandPruner) Prune(study *Study, trial FrozenTrial) bool {
	if len(p.brackets) == 0 {
		return false
	}
	bracket := p.brackets[trial.Number%len(p.brackets)]
	return bracket.Prune(study, trial)
}

func lastReport(trial FrozenTrial) (step int, value float64, ok bool) {
	step = -1
	for s, v := range trial.Intermediate {
		if s > step {
			step = s
			value = v
		}
	}
	return step, value, step >= 0
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// topShareCutoff returns the smallest value still inside the top 1/eta
// share of vals.
func topShareCutoff(vals []float64, eta int) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	keep := int(math.Ceil(float64(len(sorted)) / float64(eta)))
	if keep < 1 {
		keep = 1
	}
	if keep > len(sorted) {
		keep = len(sorted)
	}
	return sorted[keep-1]
}
