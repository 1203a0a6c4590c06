package classifier

import (
	"math"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
)

// CascadeClassifier is the legacy ADX/DI variant. It runs fixed passes over
// the series where each later pass overwrites earlier assignments for the
// bars it matches; the pass order is load-bearing and must not be
// rearranged:
//
//  1. default SIDEWAYS
//  2. weak trend (ADX below weak threshold) stays SIDEWAYS
//  3. trending + DI direction picks BULL/BEAR
//  4. borderline ADX zone falls back to strong RSI
//  5. strong price move without a trending ADX overrides 1-4
//  6. extreme price move overrides everything
type CascadeClassifier struct{}

// NewCascadeClassifier creates the legacy-mode classifier.
func NewCascadeClassifier() *CascadeClassifier {
	return &CascadeClassifier{}
}

// Labels implements Classifier.
func (c *CascadeClassifier) Labels() []regime.Label {
	return []regime.Label{regime.LabelBull, regime.LabelBear, regime.LabelSideways}
}

// Classify implements Classifier. NaN values fail every comparison, so
// warmup bars keep the sideways default.
func (c *CascadeClassifier) Classify(s *market_data.Series, ind indicators.Set, p *optimization.ResolvedParams) []regime.Label {
	n := s.Len()
	labels := make([]regime.Label, n)

	adx, _ := ind.Get(indicators.SeriesADX)
	diDiff, _ := ind.Get(indicators.SeriesDIDiff)
	rsi, _ := ind.Get(indicators.SeriesRSI)
	moves, _ := ind.Get(indicators.SeriesPriceChangePct)

	// Pass 1+2: everything defaults to sideways; a weak ADX cannot change
	// that.
	for i := range labels {
		labels[i] = regime.LabelSideways
	}

	// Pass 3: established trend with directional confirmation.
	for i := 0; i < n; i++ {
		if adx[i] >= p.ADXTrending {
			if diDiff[i] > p.DIDiffThreshold {
				labels[i] = regime.LabelBull
			} else if diDiff[i] < -p.DIDiffThreshold {
				labels[i] = regime.LabelBear
			}
		}
	}

	// Pass 4: borderline ADX, strong RSI decides.
	for i := 0; i < n; i++ {
		if adx[i] >= p.ADXWeak && adx[i] < p.ADXTrending {
			if rsi[i] > p.RSIStrongBull {
				labels[i] = regime.LabelBull
			} else if rsi[i] < p.RSIStrongBear {
				labels[i] = regime.LabelBear
			}
		}
	}

	// Pass 5: a strong move while ADX has not confirmed a trend.
	if p.StrongMovePct > 0 {
		for i := 0; i < n; i++ {
			if adx[i] < p.ADXTrending && math.Abs(moves[i]) >= p.StrongMovePct {
				if moves[i] > 0 {
					labels[i] = regime.LabelBull
				} else {
					labels[i] = regime.LabelBear
				}
			}
		}
	}

	// Pass 6: an extreme move wins unconditionally. When no extreme
	// threshold is configured the strong threshold doubles for it.
	extreme := p.ExtremeMovePct
	if extreme <= 0 {
		extreme = p.StrongMovePct
	}
	if extreme > 0 {
		for i := 0; i < n; i++ {
			if math.Abs(moves[i]) >= extreme {
				if moves[i] > 0 {
					labels[i] = regime.LabelBull
				} else {
					labels[i] = regime.LabelBear
				}
			}
		}
	}

	return labels
}
