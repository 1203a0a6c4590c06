package scoring

import (
	"fmt"
	"math"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/pkg/logger"
)

// Weights are the component weights of the total score.
type Weights struct {
	Separability float64
	Coherence    float64
	Fidelity     float64
	Boundary     float64
	Coverage     float64
}

// DefaultWeights returns the standard 30/25/25/10/10 split.
func DefaultWeights() Weights {
	return Weights{
		Separability: 0.30,
		Coherence:    0.25,
		Fidelity:     0.25,
		Boundary:     0.10,
		Coverage:     0.10,
	}
}

// Config tunes the scoring engine. Zero values resolve to adaptive defaults
// that scale with dataset size.
type Config struct {
	// WarmupBars excluded from scoring. 0 -> min(200, max(50, N/10)).
	WarmupBars int
	// FeatureLookback is the rolling window behind each feature vector.
	// 0 -> 20, always capped to N/4.
	FeatureLookback int
	// MinSegments gate. 0 -> max(3, N/200).
	MinSegments int
	// MinAvgDuration gate, in bars. 0 -> 5.
	MinAvgDuration float64
	// MaxSwitchRate gate, label changes per 1000 bars. 0 -> 120.
	MaxSwitchRate float64
	// MinBarsToScore gate. 0 -> 100.
	MinBarsToScore int
	// MinLabels gate. 0 -> 2.
	MinLabels int
	// FallbackLabel counts against coverage. Empty -> SIDEWAYS.
	FallbackLabel regime.Label
	// LabelTypes is the number of configured base types for the balance
	// term. 0 -> 3.
	LabelTypes int
	// Weights of the five components. Zero -> DefaultWeights.
	Weights Weights
}

// resolved is the config after adaptive defaults were applied for a given
// dataset size.
type resolved struct {
	Config
	scoreStart int
	scorable   int
}

func (c Config) resolve(n int) resolved {
	r := resolved{Config: c}

	if r.WarmupBars <= 0 {
		r.WarmupBars = n / 10
		if r.WarmupBars < 50 {
			r.WarmupBars = 50
		}
		if r.WarmupBars > 200 {
			r.WarmupBars = 200
		}
	}
	if r.FeatureLookback <= 0 {
		r.FeatureLookback = 20
	}
	if n/4 > 0 && r.FeatureLookback > n/4 {
		r.FeatureLookback = n / 4
	}
	if r.MinSegments <= 0 {
		r.MinSegments = n / 200
		if r.MinSegments < 3 {
			r.MinSegments = 3
		}
	}
	if r.MinAvgDuration <= 0 {
		r.MinAvgDuration = 5
	}
	if r.MaxSwitchRate <= 0 {
		r.MaxSwitchRate = 120
	}
	if r.MinBarsToScore <= 0 {
		r.MinBarsToScore = 100
	}
	if r.MinLabels <= 0 {
		r.MinLabels = 2
	}
	if r.FallbackLabel == "" {
		r.FallbackLabel = regime.LabelSideways
	}
	if r.LabelTypes <= 0 {
		r.LabelTypes = 3
	}
	zero := Weights{}
	if r.Weights == zero {
		r.Weights = DefaultWeights()
	}

	r.scoreStart = r.WarmupBars
	if r.FeatureLookback > r.scoreStart {
		r.scoreStart = r.FeatureLookback
	}
	if r.scoreStart > n {
		r.scoreStart = n
	}
	r.scorable = n - r.scoreStart
	return r
}

// Engine scores a labeled segmentation against the underlying candles.
type Engine struct {
	cfg Config
	log *logger.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.Get().With("component", "scoring"),
	}
}

// Evaluate computes the gated 5-component score for one label series.
// Labels must be index-aligned with the series bars.
func (e *Engine) Evaluate(s *market_data.Series, labels []regime.Label) optimization.ScoreResult {
	n := s.Len()
	cfg := e.cfg.resolve(n)

	scored := labels[cfg.scoreStart:]
	result := optimization.ScoreResult{
		BarsScored:   len(scored),
		BarsExcluded: n - len(scored),
		UniqueLabels: countUnique(scored),
	}

	if failures := e.gates(cfg, scored); len(failures) > 0 {
		result.GateFailures = failures
		return result
	}
	result.GatesPassed = true

	features := buildFeatures(s, cfg.scoreStart, cfg.FeatureLookback)
	standardize(features)

	result.Components = optimization.ScoreComponents{
		Separability: e.separability(features, scored),
		Coherence:    e.coherence(cfg, scored),
		Fidelity:     e.fidelity(s.Close[cfg.scoreStart:], scored),
		Boundary:     e.boundary(features, scored),
		Coverage:     e.coverage(cfg, scored),
	}

	w := cfg.Weights
	total := 100 * (w.Separability*result.Components.Separability +
		w.Coherence*result.Components.Coherence +
		w.Fidelity*result.Components.Fidelity +
		w.Boundary*result.Components.Boundary +
		w.Coverage*result.Components.Coverage)
	result.TotalScore = clamp(total, 0, 100)
	return result
}

// gates checks the statistical validity of the segmentation before any
// component is computed. Returned failures are human-readable.
func (e *Engine) gates(cfg resolved, scored []regime.Label) []string {
	var failures []string

	if len(scored) < cfg.MinBarsToScore {
		failures = append(failures, fmt.Sprintf(
			"scorable bars %d below minimum %d", len(scored), cfg.MinBarsToScore))
	}
	if unique := countUnique(scored); unique < cfg.MinLabels {
		failures = append(failures, fmt.Sprintf(
			"unique labels %d below minimum %d", unique, cfg.MinLabels))
	}

	periods := regime.PeriodsFromLabels(scored, nil)
	if len(periods) < cfg.MinSegments {
		failures = append(failures, fmt.Sprintf(
			"segments %d below minimum %d", len(periods), cfg.MinSegments))
	}
	if len(periods) > 0 {
		avg := float64(len(scored)) / float64(len(periods))
		if avg < cfg.MinAvgDuration {
			failures = append(failures, fmt.Sprintf(
				"average segment duration %.1f bars below minimum %.1f", avg, cfg.MinAvgDuration))
		}
	}
	if len(scored) > 1 {
		rate := float64(regime.Switches(scored)) / float64(len(scored)-1) * 1000
		if rate > cfg.MaxSwitchRate {
			failures = append(failures, fmt.Sprintf(
				"switch rate %.1f per 1000 bars above maximum %.1f", rate, cfg.MaxSwitchRate))
		}
	}
	return failures
}

func countUnique(labels []regime.Label) int {
	seen := make(map[regime.Label]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
