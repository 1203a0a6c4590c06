package classifier

import (
	"math"
	"strings"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
	"kairos/pkg/logger"
)

// RuleClassifier evaluates a v2 JSON regime config: regimes are tried in
// descending priority and the first one whose thresholds all pass claims the
// bar. If none passes, the lowest-priority regime is the fallback. A warmup
// prefix of max(50, 2*adx_period) bars is force-assigned the fallback.
//
// Threshold evaluation is dispatched through an ordered registry: exact
// names first, then name suffixes. A NaN indicator value fails whatever
// condition consults it, so thresholds never pass on missing data.
type RuleClassifier struct {
	cfg        *regime.Config
	log        *logger.Logger
	evaluators []evaluator
	warned     map[string]bool
}

// NewRuleClassifier creates the JSON-mode classifier.
func NewRuleClassifier(cfg *regime.Config) *RuleClassifier {
	c := &RuleClassifier{
		cfg:    cfg,
		log:    logger.Get().With("component", "rule_classifier"),
		warned: make(map[string]bool),
	}
	c.evaluators = c.buildRegistry()
	return c
}

// Labels implements Classifier: the declared regime ids in priority order,
// fallback last.
func (c *RuleClassifier) Labels() []regime.Label {
	sorted := c.cfg.RegimesByPriority()
	out := make([]regime.Label, len(sorted))
	for i, r := range sorted {
		out[i] = regime.Label(r.ID)
	}
	return out
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(s *market_data.Series, ind indicators.Set, p *optimization.ResolvedParams) []regime.Label {
	n := s.Len()
	labels := make([]regime.Label, n)

	sorted := c.cfg.RegimesByPriority()
	fallback := regime.Label(c.cfg.Fallback().ID)

	warmup := 50
	if p.ADXPeriod*2 > warmup {
		warmup = p.ADXPeriod * 2
	}

	for i := 0; i < n; i++ {
		if i < warmup {
			labels[i] = fallback
			continue
		}

		labels[i] = fallback
		for _, r := range sorted {
			if c.passes(r, i, ind, p) {
				labels[i] = regime.Label(r.ID)
				break
			}
		}
	}
	return labels
}

func (c *RuleClassifier) passes(r regime.RegimeDef, i int, ind indicators.Set, p *optimization.ResolvedParams) bool {
	for _, th := range r.Thresholds {
		value := p.JSONValue(r.ID+"."+th.Name, th.Value)
		if !c.evalThreshold(r, th.Name, value, i, ind) {
			return false
		}
	}
	return true
}

func (c *RuleClassifier) evalThreshold(r regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	lower := strings.ToLower(name)
	for _, ev := range c.evaluators {
		if ev.matches(lower) {
			return ev.eval(r, lower, threshold, i, ind)
		}
	}
	if !c.warned[lower] {
		c.warned[lower] = true
		c.log.Warnw("Unknown threshold name, condition fails closed",
			"regime", r.ID,
			"threshold", name)
	}
	return false
}

// evaluator is one entry of the dispatch registry.
type evaluator struct {
	matches func(name string) bool
	eval    func(r regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool
}

func exact(want string) func(string) bool {
	return func(name string) bool { return name == want }
}

func suffix(want string) func(string) bool {
	return func(name string) bool { return strings.HasSuffix(name, want) }
}

// buildRegistry wires the threshold dispatch table. Order matters: exact
// names must win before the generic suffix rules can claim them
// (rsi_exhaustion_max would otherwise be routed to the bare _max rule with
// an unresolvable base name).
func (c *RuleClassifier) buildRegistry() []evaluator {
	return []evaluator{
		{exact("di_diff_min"), c.evalDIDiffMin},
		{exact("rsi_strong_bull"), c.rsiCompare(false)},
		{exact("rsi_strong_bear"), c.rsiCompare(true)},
		{exact("rsi_confirm_bull"), c.rsiCompare(false)},
		{exact("rsi_confirm_bear"), c.rsiCompare(true)},
		{exact("rsi_exhaustion_max"), c.rsiExhaustion(true)},
		{exact("rsi_exhaustion_min"), c.rsiExhaustion(false)},
		{exact("extreme_move_pct"), c.evalExtremeMove},
		{suffix("_direction_eq"), c.evalDirectionEq},
		{suffix("_color_change"), c.evalColorChange},
		{suffix("_above"), c.evalAbove},
		{suffix("_below"), c.evalBelow},
		{suffix("_min"), c.evalMin},
		{suffix("_max"), c.evalMax},
	}
}

// value fetches one bar from a named series; missing series read as NaN.
func value(ind indicators.Set, series string, i int) float64 {
	vals, ok := ind.Get(series)
	if !ok || i >= len(vals) {
		return math.NaN()
	}
	return vals[i]
}

// resolve maps a threshold base name to a published series name through the
// config's alias table.
func (c *RuleClassifier) resolve(base string) string {
	return c.cfg.ResolveIndicator(base)
}

// diDiffSeries finds the nearest DI-difference series: the first declared
// ADX-family indicator's derived series, else the unprefixed alias.
func (c *RuleClassifier) diDiffSeries(ind indicators.Set) string {
	name := c.resolve("adx") + indicators.SuffixDIDiff
	if _, ok := ind.Get(name); ok {
		return name
	}
	return indicators.SeriesDIDiff
}

// rsiSeries resolves the RSI series by alias, else the plain name.
func (c *RuleClassifier) rsiSeries(ind indicators.Set) string {
	name := c.resolve("rsi")
	if _, ok := ind.Get(name); ok {
		return name
	}
	return indicators.SeriesRSI
}

func (c *RuleClassifier) evalDIDiffMin(r regime.RegimeDef, _ string, threshold float64, i int, ind indicators.Set) bool {
	diff := value(ind, c.diDiffSeries(ind), i)
	if math.IsNaN(diff) {
		return false
	}
	label := regime.Label(r.ID)
	switch label.Base() {
	case regime.BaseBull:
		return diff >= threshold
	case regime.BaseBear:
		return diff <= -threshold
	default:
		// Trend/TF-style and unknown regimes only need magnitude.
		return math.Abs(diff) >= threshold
	}
}

// rsiCompare builds the directional RSI conditions: bull-side thresholds
// need RSI at or above the value, bear-side at or below.
func (c *RuleClassifier) rsiCompare(bearSide bool) func(regime.RegimeDef, string, float64, int, indicators.Set) bool {
	return func(_ regime.RegimeDef, _ string, threshold float64, i int, ind indicators.Set) bool {
		rsi := value(ind, c.rsiSeries(ind), i)
		if math.IsNaN(rsi) {
			return false
		}
		if bearSide {
			return rsi <= threshold
		}
		return rsi >= threshold
	}
}

// rsiExhaustion mirrors the generic _max/_min asymmetry onto the RSI
// series: the max form passes strictly below the threshold, the min form at
// or above it.
func (c *RuleClassifier) rsiExhaustion(maxForm bool) func(regime.RegimeDef, string, float64, int, indicators.Set) bool {
	return func(_ regime.RegimeDef, _ string, threshold float64, i int, ind indicators.Set) bool {
		rsi := value(ind, c.rsiSeries(ind), i)
		if math.IsNaN(rsi) {
			return false
		}
		if maxForm {
			return rsi < threshold
		}
		return rsi >= threshold
	}
}

func (c *RuleClassifier) evalExtremeMove(r regime.RegimeDef, _ string, threshold float64, i int, ind indicators.Set) bool {
	move := value(ind, indicators.SeriesPriceChangePct, i)
	if math.IsNaN(move) {
		return false
	}
	id := strings.ToUpper(r.ID)
	switch {
	case strings.Contains(id, "BULL"):
		return move >= threshold
	case strings.Contains(id, "BEAR"):
		return move <= -threshold
	default:
		return math.Abs(move) >= threshold
	}
}

func (c *RuleClassifier) evalDirectionEq(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_direction_eq")
	v := value(ind, c.resolve(base)+indicators.SuffixDirection, i)
	if math.IsNaN(v) {
		return false
	}
	return int(v) == int(threshold)
}

func (c *RuleClassifier) evalColorChange(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_color_change")
	v := value(ind, c.resolve(base)+indicators.SuffixColorChange, i)
	if math.IsNaN(v) {
		return false
	}
	return int(v) == int(threshold)
}

func (c *RuleClassifier) evalAbove(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_above")
	v := value(ind, c.resolve(base), i)
	return v > threshold
}

func (c *RuleClassifier) evalBelow(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_below")
	v := value(ind, c.resolve(base), i)
	return v < threshold
}

// evalMin passes at or above the threshold.
func (c *RuleClassifier) evalMin(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_min")
	v := value(ind, c.resolve(base), i)
	return v >= threshold
}

// evalMax passes strictly below the threshold. The asymmetry against
// evalMin (>= pass there, < pass here) is intentional and relied on by
// existing rule sets.
func (c *RuleClassifier) evalMax(_ regime.RegimeDef, name string, threshold float64, i int, ind indicators.Set) bool {
	base := strings.TrimSuffix(name, "_max")
	v := value(ind, c.resolve(base), i)
	return v < threshold
}
