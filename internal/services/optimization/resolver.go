package optimization

import (
	"math"

	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/optimizer"
)

// Default search ranges used when a parameter the active mode needs has no
// configured range. These mirror the hardcoded spaces the legacy optimizer
// searched before ranges became configurable.
var (
	defADXPeriod     = optimization.ParamRange{Min: 10, Max: 30, Step: 2}
	defADXThreshold  = optimization.ParamRange{Min: 20, Max: 35, Step: 2.5}
	defADXTrending   = optimization.ParamRange{Min: 20, Max: 35, Step: 2.5}
	defADXWeak       = optimization.ParamRange{Min: 10, Max: 25, Step: 2.5}
	defDIDiff        = optimization.ParamRange{Min: 2, Max: 10, Step: 1}
	defSMAFast       = optimization.ParamRange{Min: 10, Max: 50, Step: 5}
	defSMASlow       = optimization.ParamRange{Min: 50, Max: 200, Step: 10}
	defRSIPeriod     = optimization.ParamRange{Min: 10, Max: 21, Step: 1}
	defRSIStrongBull = optimization.ParamRange{Min: 60, Max: 75, Step: 2.5}
	defRSIStrongBear = optimization.ParamRange{Min: 25, Max: 40, Step: 2.5}
	defATRPeriod     = optimization.ParamRange{Min: 10, Max: 21, Step: 1}
	defStrongMove    = optimization.ParamRange{Min: 3, Max: 8, Step: 0.5}
	defExtremeMove   = optimization.ParamRange{Min: 8, Max: 15, Step: 0.5}
)

// Fixed fallbacks for parameters that are not searched when their range (and
// any substitute range) is absent.
const (
	fixedRSISidewaysLow  = 40.0
	fixedRSISidewaysHigh = 60.0
	fixedBBPeriod        = 20.0
	fixedBBStdDev        = 2.0
	fixedBBWidthPct      = 30.0
)

// Resolver turns a trial into a concrete ResolvedParams value for the active
// resolution mode. The same resolver replays stored parameter maps after the
// search, so suggestion order and naming live in exactly one place.
type Resolver struct {
	space *optimization.ParameterSpace
	cfg   *regime.Config
	mode  optimization.Mode
}

// NewResolver picks the resolution mode: an explicit override wins, a regime
// config selects JSON mode, otherwise the parameter space decides between
// simple and legacy.
func NewResolver(space *optimization.ParameterSpace, cfg *regime.Config, override optimization.Mode) *Resolver {
	mode := override
	if mode == "" {
		if cfg != nil {
			mode = optimization.ModeJSON
		} else {
			mode = space.DetectMode()
		}
	}
	return &Resolver{space: space, cfg: cfg, mode: mode}
}

func (r *Resolver) Mode() optimization.Mode { return r.mode }

// Resolve suggests every parameter the active mode needs through the trial.
func (r *Resolver) Resolve(t *optimizer.Trial) *optimization.ResolvedParams {
	return r.resolve(trialSource{t: t})
}

// FromStored rebuilds ResolvedParams from a frozen trial's parameter map.
// Names absent from the map fall back to the same defaults Resolve would
// have used, so a replayed trial sees the values it was scored with.
func (r *Resolver) FromStored(params map[string]float64) *optimization.ResolvedParams {
	return r.resolve(storedSource{params: params})
}

func (r *Resolver) resolve(src valueSource) *optimization.ResolvedParams {
	p := &optimization.ResolvedParams{Mode: r.mode}
	switch r.mode {
	case optimization.ModeJSON:
		r.resolveJSON(src, p)
	case optimization.ModeSimple:
		r.resolveSimple(src, p)
	default:
		r.resolveLegacy(src, p)
	}
	return p
}

func (r *Resolver) resolveSimple(src valueSource, p *optimization.ResolvedParams) {
	s := r.space
	p.ADXPeriod = src.Int("adx_period", pick(s.ADXPeriod, defADXPeriod))
	p.ADXThreshold = src.Float("adx_threshold", pick(s.ADXThreshold, defADXThreshold))
	p.SMAFastPeriod = src.Int("sma_fast_period", pick(s.SMAFast, defSMAFast))
	p.SMASlowPeriod = src.Int("sma_slow_period", pick(s.SMASlow, defSMASlow))
	p.RSIPeriod = src.Int("rsi_period", pick(s.RSIPeriod, defRSIPeriod))

	// Sideways band: own range, else the strong-move ranges stand in, else
	// fixed values that are not searched at all.
	switch {
	case s.RSISidewaysLow != nil:
		p.RSISidewaysLow = src.Float("rsi_sideways_low", *s.RSISidewaysLow)
	case s.RSIStrongBear != nil:
		p.RSISidewaysLow = src.Float("rsi_sideways_low", *s.RSIStrongBear)
	default:
		p.RSISidewaysLow = src.Fixed("rsi_sideways_low", fixedRSISidewaysLow)
	}
	switch {
	case s.RSISidewaysHigh != nil:
		p.RSISidewaysHigh = src.Float("rsi_sideways_high", *s.RSISidewaysHigh)
	case s.RSIStrongBull != nil:
		p.RSISidewaysHigh = src.Float("rsi_sideways_high", *s.RSIStrongBull)
	default:
		p.RSISidewaysHigh = src.Fixed("rsi_sideways_high", fixedRSISidewaysHigh)
	}

	if s.BBPeriod != nil || s.BBStdDev != nil || s.BBWidthPct != nil {
		p.BBPeriod = src.Int("bb_period", pickFixed(s.BBPeriod, fixedBBPeriod))
		p.BBStdDev = src.Float("bb_std_dev", pickFixed(s.BBStdDev, fixedBBStdDev))
		p.BBWidthPct = src.Float("bb_width_percentile", pickFixed(s.BBWidthPct, fixedBBWidthPct))
	}
	if s.ATRPeriod != nil || s.StrongMovePct != nil || s.ExtremeMovePct != nil {
		p.ATRPeriod = src.Int("atr_period", pick(s.ATRPeriod, defATRPeriod))
		p.StrongMovePct = src.Float("strong_move_pct", pick(s.StrongMovePct, defStrongMove))
		p.ExtremeMovePct = src.Float("extreme_move_pct", pick(s.ExtremeMovePct, defExtremeMove))
	}
}

func (r *Resolver) resolveLegacy(src valueSource, p *optimization.ResolvedParams) {
	s := r.space
	p.ADXPeriod = src.Int("adx_period", pick(s.ADXPeriod, defADXPeriod))
	p.ADXTrending = src.Float("adx_trending_threshold", pick(s.ADXTrending, defADXTrending))
	p.ADXWeak = src.Float("adx_weak_threshold", pick(s.ADXWeak, defADXWeak))
	// A weak cutoff at or above the trending cutoff would erase the
	// moderate band, so clamp it below.
	if p.ADXWeak > p.ADXTrending-1 {
		p.ADXWeak = p.ADXTrending - 1
	}
	p.DIDiffThreshold = src.Float("di_diff_threshold", pick(s.DIDiff, defDIDiff))
	p.RSIPeriod = src.Int("rsi_period", pick(s.RSIPeriod, defRSIPeriod))
	p.RSIStrongBull = src.Float("rsi_strong_bull", pick(s.RSIStrongBull, defRSIStrongBull))
	p.RSIStrongBear = src.Float("rsi_strong_bear", pick(s.RSIStrongBear, defRSIStrongBear))
	p.ATRPeriod = src.Int("atr_period", pick(s.ATRPeriod, defATRPeriod))
	p.StrongMovePct = src.Float("strong_move_pct", pick(s.StrongMovePct, defStrongMove))
	p.ExtremeMovePct = src.Float("extreme_move_pct", pick(s.ExtremeMovePct, defExtremeMove))
}

func (r *Resolver) resolveJSON(src valueSource, p *optimization.ResolvedParams) {
	p.JSONValues = make(map[string]float64)

	for _, ind := range r.cfg.Indicators {
		for _, param := range ind.Params {
			if param.Range == nil {
				continue
			}
			key := ind.Name + "." + param.Name
			rng := rangeDef(param.Range)
			if rng.IsInt() && isIntegral(param.Value) {
				p.JSONValues[key] = float64(src.Int(key, rng))
			} else {
				p.JSONValues[key] = src.Float(key, rng)
			}
		}
	}
	for _, reg := range r.cfg.Regimes {
		for _, th := range reg.Thresholds {
			if th.Range == nil {
				continue
			}
			key := reg.ID + "." + th.Name
			rng := rangeDef(th.Range)
			if rng.IsInt() && isIntegral(th.Value) {
				p.JSONValues[key] = float64(src.Int(key, rng))
			} else {
				p.JSONValues[key] = src.Float(key, rng)
			}
		}
	}

	p.ADXPeriod = r.jsonPeriod(p, 14, [][2]string{
		{"adx", "period"}, {"dmi", "period"}, {"leafwest_adx", "adx_period"},
	})
	p.ATRPeriod = r.jsonPeriod(p, 0, [][2]string{{"atr", "period"}})
	p.RSIPeriod = r.jsonPeriod(p, 0, [][2]string{{"rsi", "period"}})
}

// EffectiveJSON returns the complete dotted-key parameter picture of a
// JSON-mode resolution: every declared indicator param and regime threshold
// with its effective value, suggested or fixed. This is the map a caller
// needs to write the winning parameters back into a config file.
func (r *Resolver) EffectiveJSON(p *optimization.ResolvedParams) map[string]float64 {
	if r.cfg == nil {
		return nil
	}

	out := make(map[string]float64)
	for _, ind := range r.cfg.Indicators {
		for _, param := range ind.Params {
			key := ind.Name + "." + param.Name
			out[key] = p.JSONValue(key, param.Value)
		}
	}
	for _, reg := range r.cfg.Regimes {
		for _, th := range reg.Thresholds {
			key := reg.ID + "." + th.Name
			out[key] = p.JSONValue(key, th.Value)
		}
	}
	return out
}

// jsonPeriod resolves a structural period (warmup, lookback) from the first
// declared indicator of the listed types, honoring a per-trial override.
func (r *Resolver) jsonPeriod(p *optimization.ResolvedParams, def int, candidates [][2]string) int {
	for _, c := range candidates {
		ind, ok := r.cfg.FirstIndicatorOfType(c[0])
		if !ok {
			continue
		}
		fixed := float64(def)
		if v, ok := r.cfg.IndicatorParam(ind.Name, c[1]); ok {
			fixed = v
		}
		return int(p.JSONValue(ind.Name+"."+c[1], fixed))
	}
	return def
}

// pick returns the configured range or the built-in default search range.
func pick(rng *optimization.ParamRange, def optimization.ParamRange) optimization.ParamRange {
	if rng != nil {
		return *rng
	}
	return def
}

// pickFixed returns the configured range or a degenerate single-value range.
func pickFixed(rng *optimization.ParamRange, fixed float64) optimization.ParamRange {
	if rng != nil {
		return *rng
	}
	return optimization.ParamRange{Min: fixed, Max: fixed, Step: 1}
}

func rangeDef(rd *regime.RangeDef) optimization.ParamRange {
	return optimization.ParamRange{Min: rd.Min, Max: rd.Max, Step: rd.Step}
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v)
}

// valueSource abstracts where parameter values come from: a live trial
// during the search, or a frozen parameter map during replay.
type valueSource interface {
	Int(name string, rng optimization.ParamRange) int
	Float(name string, rng optimization.ParamRange) float64
	// Fixed reports a value that is never suggested. A stored source may
	// still override it when the search happened to record the name.
	Fixed(name string, def float64) float64
}

type trialSource struct {
	t *optimizer.Trial
}

func (s trialSource) Int(name string, rng optimization.ParamRange) int {
	step := int(rng.Step)
	if step < 1 {
		step = 1
	}
	return s.t.SuggestInt(name, int(rng.Min), int(rng.Max), step)
}

func (s trialSource) Float(name string, rng optimization.ParamRange) float64 {
	return s.t.SuggestFloat(name, rng.Min, rng.Max, rng.Step)
}

func (s trialSource) Fixed(_ string, def float64) float64 { return def }

type storedSource struct {
	params map[string]float64
}

func (s storedSource) Int(name string, rng optimization.ParamRange) int {
	if v, ok := s.params[name]; ok {
		return int(v)
	}
	return int(rng.Min)
}

func (s storedSource) Float(name string, rng optimization.ParamRange) float64 {
	if v, ok := s.params[name]; ok {
		return v
	}
	return rng.Min
}

func (s storedSource) Fixed(name string, def float64) float64 {
	if v, ok := s.params[name]; ok {
		return v
	}
	return def
}
