package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kairos/internal/domain/regime"
)

func threeBlockLabels() []regime.Label {
	return append(repeatLabels(regime.LabelBull, 10),
		append(repeatLabels(regime.LabelBear, 10),
			repeatLabels(regime.LabelSideways, 10)...)...)
}

func TestComposite_PerfectTruth(t *testing.T) {
	labels := threeBlockLabels()

	// All F1 terms are 1; two switches over 30 bars cost a little stability.
	want := 100 * (0.25 + 0.30 + 0.20 + 0.25*(1-2.0/30.0))
	assert.InDelta(t, want, Composite(labels, labels), 1e-9)
}

func TestComposite_DisjointTruth(t *testing.T) {
	labels := repeatLabels(regime.LabelBull, 30)
	truth := repeatLabels(regime.LabelBear, 30)

	// Every F1 zeroes out; only the stability term survives.
	assert.InDelta(t, 25.0, Composite(labels, truth), 1e-9)
}

func TestComposite_BalanceProxy(t *testing.T) {
	labels := threeBlockLabels()

	// Without truth, perfect thirds make every proxy 1.
	want := 100 * (0.25 + 0.30 + 0.20 + 0.25*(1-2.0/30.0))
	assert.InDelta(t, want, Composite(labels, nil), 1e-9)

	// A single-class labeling is penalized through the proxies.
	bullOnly := repeatLabels(regime.LabelBull, 30)
	want = 100 * (0.25*(1.0/3.0) + 0.30*(2.0/3.0) + 0.20*(2.0/3.0) + 0.25)
	assert.InDelta(t, want, Composite(bullOnly, nil), 1e-9)
}

func TestComposite_TruthLengthMismatchFallsBack(t *testing.T) {
	labels := threeBlockLabels()
	shortTruth := repeatLabels(regime.LabelBull, 5)

	assert.InDelta(t, Composite(labels, nil), Composite(labels, shortTruth), 1e-9)
}

func TestComposite_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Composite(nil, nil))
}

func TestF1Score(t *testing.T) {
	labels := []regime.Label{regime.LabelBull, regime.LabelBull, regime.LabelBear, regime.LabelSideways}
	truth := []regime.Label{regime.LabelBull, regime.LabelBear, regime.LabelBear, regime.LabelSideways}

	// Bull: tp=1 fp=1 fn=0 -> precision 0.5, recall 1 -> F1 2/3.
	assert.InDelta(t, 2.0/3.0, f1Score(labels, truth, regime.BaseBull), 1e-9)
	// Bear: tp=1 fp=0 fn=1 -> precision 1, recall 0.5 -> F1 2/3.
	assert.InDelta(t, 2.0/3.0, f1Score(labels, truth, regime.BaseBear), 1e-9)
	assert.Equal(t, 1.0, f1Score(labels, truth, regime.BaseSideways))

	// Never predicted and never true: zero, not NaN.
	none := repeatLabels(regime.LabelBull, 4)
	assert.Equal(t, 0.0, f1Score(none, none, regime.BaseBear))
}

func TestBalanceProxy(t *testing.T) {
	labels := threeBlockLabels()
	assert.InDelta(t, 1.0, balanceProxy(labels, regime.BaseBull), 1e-9)

	bullOnly := repeatLabels(regime.LabelBull, 30)
	assert.InDelta(t, 1.0/3.0, balanceProxy(bullOnly, regime.BaseBull), 1e-9)
	assert.InDelta(t, 2.0/3.0, balanceProxy(bullOnly, regime.BaseBear), 1e-9)
}
