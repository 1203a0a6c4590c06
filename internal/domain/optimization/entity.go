package optimization

import (
	"encoding/json"
	"math"
	"os"

	"kairos/pkg/errors"
)

// Mode selects how trial parameters are resolved.
type Mode string

const (
	// ModeSimple drives the SMA/ADX classifier: triggered when SMA, BB, or
	// an explicit adx_threshold range is configured.
	ModeSimple Mode = "simple"
	// ModeLegacy drives the fixed ADX/DI cascade. Default.
	ModeLegacy Mode = "legacy"
	// ModeJSON resolves every ranged parameter of a v2 JSON regime config.
	ModeJSON Mode = "json"
)

// Valid checks if mode is valid
func (m Mode) Valid() bool {
	switch m {
	case ModeSimple, ModeLegacy, ModeJSON:
		return true
	}
	return false
}

// String returns string representation
func (m Mode) String() string {
	return string(m)
}

// ParamRange bounds one optimizable parameter. Every suggested value lies on
// the lattice min + k*step, inclusive of both ends.
type ParamRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Validate checks range invariants: min <= max and step > 0.
func (r ParamRange) Validate() error {
	if r.Step <= 0 {
		return errors.Wrapf(errors.ErrInvalidRange, "step %v must be > 0", r.Step)
	}
	if r.Min > r.Max {
		return errors.Wrapf(errors.ErrInvalidRange, "min %v > max %v", r.Min, r.Max)
	}
	return nil
}

// IsInt reports whether the range describes an integer parameter (all three
// bounds integral).
func (r ParamRange) IsInt() bool {
	return r.Min == math.Trunc(r.Min) && r.Max == math.Trunc(r.Max) && r.Step == math.Trunc(r.Step)
}

// Steps returns the number of lattice points in the range.
func (r ParamRange) Steps() int {
	if r.Step <= 0 || r.Max < r.Min {
		return 0
	}
	return int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
}

// Snap clamps v into the range and rounds it onto the step lattice.
func (r ParamRange) Snap(v float64) float64 {
	if v <= r.Min {
		return r.Min
	}
	if v >= r.Max {
		return r.Max
	}
	k := math.Round((v - r.Min) / r.Step)
	snapped := r.Min + k*r.Step
	if snapped > r.Max {
		snapped = r.Max
	}
	return snapped
}

// Value returns the k-th lattice point, clamped to max.
func (r ParamRange) Value(k int) float64 {
	v := r.Min + float64(k)*r.Step
	if v > r.Max {
		return r.Max
	}
	return v
}

// ParameterSpace is the named collection of ranges supplied once per run.
// Nil entries mean "not configured"; the resolver decides mode and defaults
// from what is present.
type ParameterSpace struct {
	ADXPeriod       *ParamRange `json:"adx_period,omitempty"`
	ADXThreshold    *ParamRange `json:"adx_threshold,omitempty"`
	ADXTrending     *ParamRange `json:"adx_trending_threshold,omitempty"`
	ADXWeak         *ParamRange `json:"adx_weak_threshold,omitempty"`
	DIDiff          *ParamRange `json:"di_diff_threshold,omitempty"`
	SMAFast         *ParamRange `json:"sma_fast_period,omitempty"`
	SMASlow         *ParamRange `json:"sma_slow_period,omitempty"`
	RSIPeriod       *ParamRange `json:"rsi_period,omitempty"`
	RSISidewaysLow  *ParamRange `json:"rsi_sideways_low,omitempty"`
	RSISidewaysHigh *ParamRange `json:"rsi_sideways_high,omitempty"`
	RSIStrongBull   *ParamRange `json:"rsi_strong_bull,omitempty"`
	RSIStrongBear   *ParamRange `json:"rsi_strong_bear,omitempty"`
	BBPeriod        *ParamRange `json:"bb_period,omitempty"`
	BBStdDev        *ParamRange `json:"bb_std_dev,omitempty"`
	BBWidthPct      *ParamRange `json:"bb_width_percentile,omitempty"`
	ATRPeriod       *ParamRange `json:"atr_period,omitempty"`
	StrongMovePct   *ParamRange `json:"strong_move_pct,omitempty"`
	ExtremeMovePct  *ParamRange `json:"extreme_move_pct,omitempty"`
}

// Validate fails fast on any malformed range.
func (s *ParameterSpace) Validate() error {
	for name, r := range s.ranges() {
		if r == nil {
			continue
		}
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "range %s", name)
		}
	}
	return nil
}

func (s *ParameterSpace) ranges() map[string]*ParamRange {
	return map[string]*ParamRange{
		"adx_period":             s.ADXPeriod,
		"adx_threshold":          s.ADXThreshold,
		"adx_trending_threshold": s.ADXTrending,
		"adx_weak_threshold":     s.ADXWeak,
		"di_diff_threshold":      s.DIDiff,
		"sma_fast_period":        s.SMAFast,
		"sma_slow_period":        s.SMASlow,
		"rsi_period":             s.RSIPeriod,
		"rsi_sideways_low":       s.RSISidewaysLow,
		"rsi_sideways_high":      s.RSISidewaysHigh,
		"rsi_strong_bull":        s.RSIStrongBull,
		"rsi_strong_bear":        s.RSIStrongBear,
		"bb_period":              s.BBPeriod,
		"bb_std_dev":             s.BBStdDev,
		"bb_width_percentile":    s.BBWidthPct,
		"atr_period":             s.ATRPeriod,
		"strong_move_pct":        s.StrongMovePct,
		"extreme_move_pct":       s.ExtremeMovePct,
	}
}

// Configured returns the explicitly configured ranges by parameter name.
func (s *ParameterSpace) Configured() map[string]ParamRange {
	out := make(map[string]ParamRange)
	for name, rng := range s.ranges() {
		if rng != nil {
			out[name] = *rng
		}
	}
	return out
}

// DetectMode picks the resolution mode from the configured ranges: simple
// when SMA, Bollinger, or an explicit adx_threshold range is present, legacy
// otherwise. JSON mode is requested explicitly by supplying a regime config.
func (s *ParameterSpace) DetectMode() Mode {
	if s.SMAFast != nil || s.SMASlow != nil || s.BBPeriod != nil ||
		s.BBStdDev != nil || s.BBWidthPct != nil || s.ADXThreshold != nil {
		return ModeSimple
	}
	return ModeLegacy
}

// LoadSpace reads and parses a parameter space JSON file.
func LoadSpace(path string) (*ParameterSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfigMissing, "read parameter space %s: %v", path, err)
	}
	return ParseSpace(data)
}

// ParseSpace parses a parameter space JSON document and validates its ranges.
func ParseSpace(data []byte) (*ParameterSpace, error) {
	var space ParameterSpace
	if err := json.Unmarshal(data, &space); err != nil {
		return nil, errors.Wrap(err, "parse parameter space")
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	return &space, nil
}

// ResolvedParams is the flat per-trial value object. One is produced at the
// start of every trial and discarded after scoring; nothing here is shared
// between trials.
type ResolvedParams struct {
	Mode Mode

	ADXPeriod       int
	ADXThreshold    float64
	ADXTrending     float64
	ADXWeak         float64
	DIDiffThreshold float64

	SMAFastPeriod int
	SMASlowPeriod int

	RSIPeriod       int
	RSISidewaysLow  float64
	RSISidewaysHigh float64
	RSIStrongBull   float64
	RSIStrongBear   float64

	BBPeriod   int
	BBStdDev   float64
	BBWidthPct float64

	ATRPeriod      int
	StrongMovePct  float64
	ExtremeMovePct float64

	// JSONValues holds "{scope}.{name}" keys for JSON mode. Rebuilt from
	// scratch each trial.
	JSONValues map[string]float64
}

// JSONValue returns the per-trial value for a dotted key, falling back to
// the supplied fixed value when the key was never suggested.
func (p *ResolvedParams) JSONValue(key string, fixed float64) float64 {
	if p.JSONValues == nil {
		return fixed
	}
	if v, ok := p.JSONValues[key]; ok {
		return v
	}
	return fixed
}

// Flatten returns the resolved values as a name->value map for result
// records. JSON mode returns the dotted-key map.
func (p *ResolvedParams) Flatten() map[string]float64 {
	if p.Mode == ModeJSON {
		out := make(map[string]float64, len(p.JSONValues))
		for k, v := range p.JSONValues {
			out[k] = v
		}
		return out
	}

	out := map[string]float64{
		"adx_period": float64(p.ADXPeriod),
		"rsi_period": float64(p.RSIPeriod),
	}
	switch p.Mode {
	case ModeSimple:
		out["adx_threshold"] = p.ADXThreshold
		out["sma_fast_period"] = float64(p.SMAFastPeriod)
		out["sma_slow_period"] = float64(p.SMASlowPeriod)
		out["rsi_sideways_low"] = p.RSISidewaysLow
		out["rsi_sideways_high"] = p.RSISidewaysHigh
		if p.BBPeriod > 0 {
			out["bb_period"] = float64(p.BBPeriod)
			out["bb_std_dev"] = p.BBStdDev
			out["bb_width_percentile"] = p.BBWidthPct
		}
		if p.ATRPeriod > 0 {
			out["atr_period"] = float64(p.ATRPeriod)
			out["strong_move_pct"] = p.StrongMovePct
			out["extreme_move_pct"] = p.ExtremeMovePct
		}
	case ModeLegacy:
		out["adx_trending_threshold"] = p.ADXTrending
		out["adx_weak_threshold"] = p.ADXWeak
		out["di_diff_threshold"] = p.DIDiffThreshold
		out["rsi_strong_bull"] = p.RSIStrongBull
		out["rsi_strong_bear"] = p.RSIStrongBear
		out["atr_period"] = float64(p.ATRPeriod)
		out["strong_move_pct"] = p.StrongMovePct
		out["extreme_move_pct"] = p.ExtremeMovePct
	}
	return out
}

// PriceChangeLookback returns the lookback for the price-change-percent
// series: the ATR period when set, else the ADX period.
func (p *ResolvedParams) PriceChangeLookback() int {
	if p.ATRPeriod > 0 {
		return p.ATRPeriod
	}
	return p.ADXPeriod
}
