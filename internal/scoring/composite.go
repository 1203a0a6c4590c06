package scoring

import (
	"math"

	"kairos/internal/domain/regime"
)

// Composite is the simpler cross-check score:
//
//	100 * (0.25*F1_bull + 0.30*F1_bear + 0.20*F1_sideways + 0.25*stability)
//
// F1 is computed against truth when a ground-truth series of the same
// length is supplied; otherwise each class falls back to the balance proxy
// 1 - |observed_fraction - 1/3|. Stability is max(0, 1 - switches/bars).
func Composite(labels, truth []regime.Label) float64 {
	if len(labels) == 0 {
		return 0
	}

	var f1Bull, f1Bear, f1Side float64
	if len(truth) == len(labels) {
		f1Bull = f1Score(labels, truth, regime.BaseBull)
		f1Bear = f1Score(labels, truth, regime.BaseBear)
		f1Side = f1Score(labels, truth, regime.BaseSideways)
	} else {
		f1Bull = balanceProxy(labels, regime.BaseBull)
		f1Bear = balanceProxy(labels, regime.BaseBear)
		f1Side = balanceProxy(labels, regime.BaseSideways)
	}

	stability := 1 - float64(regime.Switches(labels))/float64(len(labels))
	if stability < 0 {
		stability = 0
	}

	return 100 * (0.25*f1Bull + 0.30*f1Bear + 0.20*f1Side + 0.25*stability)
}

// f1Score is the harmonic mean of precision and recall for one base type.
func f1Score(labels, truth []regime.Label, base regime.BaseType) float64 {
	var tp, fp, fn float64
	for i := range labels {
		predicted := labels[i].Base() == base
		actual := truth[i].Base() == base
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	return 2 * precision * recall / (precision + recall)
}

// balanceProxy substitutes for F1 without ground truth: a class scores best
// when it covers about a third of the bars.
func balanceProxy(labels []regime.Label, base regime.BaseType) float64 {
	count := 0
	for _, l := range labels {
		if l.Base() == base {
			count++
		}
	}
	frac := float64(count) / float64(len(labels))
	return clamp01(1 - math.Abs(frac-1.0/3.0))
}
