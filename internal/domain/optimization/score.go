package optimization

// ScoreComponents are the five normalized sub-scores of the quality metric,
// each in [0, 1].
type ScoreComponents struct {
	Separability float64 `json:"separability"`
	Coherence    float64 `json:"temporal_coherence"`
	Fidelity     float64 `json:"regime_fidelity"`
	Boundary     float64 `json:"boundary_strength"`
	Coverage     float64 `json:"coverage_balance"`
}

// ScoreResult is the outcome of scoring one labeled segmentation.
type ScoreResult struct {
	TotalScore   float64         `json:"total_score"`
	Components   ScoreComponents `json:"components"`
	GatesPassed  bool            `json:"gates_passed"`
	GateFailures []string        `json:"gate_failures,omitempty"`
	BarsScored   int             `json:"n_bars_scored"`
	BarsExcluded int             `json:"n_bars_excluded"`
	UniqueLabels int             `json:"unique_labels"`
}

// Metric keys used when score components travel through trial user
// attributes and result metrics.
const (
	MetricSeparability = "separability"
	MetricCoherence    = "temporal_coherence"
	MetricFidelity     = "regime_fidelity"
	MetricBoundary     = "boundary_strength"
	MetricCoverage     = "coverage_balance"
)

// MetricsMap flattens the components for TrialResult.Metrics.
func (s *ScoreResult) MetricsMap() map[string]float64 {
	return map[string]float64{
		MetricSeparability: s.Components.Separability,
		MetricCoherence:    s.Components.Coherence,
		MetricFidelity:     s.Components.Fidelity,
		MetricBoundary:     s.Components.Boundary,
		MetricCoverage:     s.Components.Coverage,
	}
}
