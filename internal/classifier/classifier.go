package classifier

import (
	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
	"kairos/pkg/errors"
)

// Classifier assigns exactly one regime label to every bar of a series.
// Implementations are pure over (series, indicators, params); nothing is
// retained between calls.
type Classifier interface {
	Classify(s *market_data.Series, ind indicators.Set, p *optimization.ResolvedParams) []regime.Label
	// Labels returns the label set this classifier can emit. The last
	// entry is the fallback/default label.
	Labels() []regime.Label
}

// New selects the classifier variant for a run. The choice is made once at
// construction; per-trial code never probes the mode again.
func New(mode optimization.Mode, cfg *regime.Config) (Classifier, error) {
	switch mode {
	case optimization.ModeJSON:
		if cfg == nil {
			return nil, errors.Wrap(errors.ErrConfigMissing, "json mode requires a regime config")
		}
		return NewRuleClassifier(cfg), nil
	case optimization.ModeSimple:
		return NewThresholdClassifier(), nil
	case optimization.ModeLegacy:
		return NewCascadeClassifier(), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown mode %q", mode)
	}
}
