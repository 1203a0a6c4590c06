package regime

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"kairos/pkg/errors"
)

// Config is the v2 JSON regime configuration. The optimizer consumes it but
// does not own it: indicator definitions drive declarative indicator
// computation, regime definitions drive the rule classifier, and the
// optimization_results history records previously applied parameter sets.
//
// Derived lookups (the indicator alias table, the priority-sorted regime
// order) are computed once at load time and stored on the value; Config is
// immutable afterwards.
type Config struct {
	Indicators          []IndicatorDef         `json:"indicators"`
	Regimes             []RegimeDef            `json:"regimes"`
	OptimizationResults []OptimizationSnapshot `json:"optimization_results,omitempty"`

	aliases map[string]string
	sorted  []RegimeDef
}

// IndicatorDef declares one indicator instance by name and type, with its
// parameters (each optionally carrying an optimization range).
type IndicatorDef struct {
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Params []ParamDef `json:"params"`
}

// RegimeDef declares one regime: its id, evaluation priority, and the
// thresholds that must all pass for a bar to receive the regime's label.
type RegimeDef struct {
	ID         string     `json:"id"`
	Priority   int        `json:"priority"`
	Thresholds []ParamDef `json:"thresholds"`
}

// ParamDef is a named scalar with an optional optimization range. Params
// without a range keep their fixed value through every trial.
type ParamDef struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Range *RangeDef `json:"range,omitempty"`
}

// RangeDef mirrors a ParamRange in JSON form.
type RangeDef struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// OptimizationSnapshot is one historical optimization outcome recorded in the
// config file.
type OptimizationSnapshot struct {
	Applied    bool               `json:"applied"`
	Params     map[string]float64 `json:"params,omitempty"`
	Indicators []IndicatorDef     `json:"indicators,omitempty"`
	Regimes    []RegimeDef        `json:"regimes,omitempty"`
}

// LoadConfig reads and parses a v2 JSON regime config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfigMissing, "read regime config %s: %v", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a v2 JSON regime config document and precomputes the
// derived lookups.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse regime config")
	}
	if len(cfg.Regimes) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "regime config declares no regimes")
	}
	cfg.buildDerived()
	return &cfg, nil
}

func (c *Config) buildDerived() {
	c.aliases = buildAliasTable(c.Indicators)

	c.sorted = make([]RegimeDef, len(c.Regimes))
	copy(c.sorted, c.Regimes)
	sort.SliceStable(c.sorted, func(i, j int) bool {
		if c.sorted[i].Priority != c.sorted[j].Priority {
			return c.sorted[i].Priority > c.sorted[j].Priority
		}
		return c.sorted[i].ID < c.sorted[j].ID
	})
}

// RegimesByPriority returns regimes sorted by descending priority (ties by
// id). The last entry doubles as the fallback regime.
func (c *Config) RegimesByPriority() []RegimeDef {
	return c.sorted
}

// Fallback returns the regime assigned when no rule set passes and during
// classifier warmup.
func (c *Config) Fallback() RegimeDef {
	return c.sorted[len(c.sorted)-1]
}

// ResolveIndicator maps a threshold base name (e.g. "adx", "chandelier") to
// the series name the indicator engine published, falling back to the
// uppercased base when no declared indicator matches.
func (c *Config) ResolveIndicator(base string) string {
	if name, ok := c.aliases[strings.ToLower(base)]; ok {
		return name
	}
	return strings.ToUpper(base)
}

// LastApplied returns the most recent optimization snapshot marked applied,
// or the first snapshot when none is marked, or nil when the history is
// empty.
func (c *Config) LastApplied() *OptimizationSnapshot {
	for i := len(c.OptimizationResults) - 1; i >= 0; i-- {
		if c.OptimizationResults[i].Applied {
			return &c.OptimizationResults[i]
		}
	}
	if len(c.OptimizationResults) > 0 {
		return &c.OptimizationResults[0]
	}
	return nil
}

// IndicatorParam returns the declared value of a parameter on a named
// indicator and whether it exists.
func (c *Config) IndicatorParam(indicator, param string) (float64, bool) {
	for _, ind := range c.Indicators {
		if !strings.EqualFold(ind.Name, indicator) {
			continue
		}
		for _, p := range ind.Params {
			if strings.EqualFold(p.Name, param) {
				return p.Value, true
			}
		}
	}
	return 0, false
}

// FirstIndicatorOfType returns the first declared indicator of the given
// type family, matching the declaration order of the config file.
func (c *Config) FirstIndicatorOfType(types ...string) (IndicatorDef, bool) {
	for _, ind := range c.Indicators {
		t := strings.ToLower(ind.Type)
		for _, want := range types {
			if t == want {
				return ind, true
			}
		}
	}
	return IndicatorDef{}, false
}

// buildAliasTable maps common threshold base names to declared indicator
// names, keyed by the declared types. First declaration of a family wins.
func buildAliasTable(indicators []IndicatorDef) map[string]string {
	aliases := make(map[string]string)
	put := func(key, name string) {
		if _, ok := aliases[key]; !ok {
			aliases[key] = name
		}
	}
	for _, ind := range indicators {
		name := strings.ToUpper(ind.Name)
		switch strings.ToLower(ind.Type) {
		case "adx", "dmi", "leafwest_adx":
			put("adx", name)
			put("dmi", name)
			put("di", name)
		case "rsi":
			put("rsi", name)
		case "atr":
			put("atr", name)
		case "chandelier_exit", "chande_kroll_stop":
			put("chandelier", name)
			put("chande_kroll", name)
			put("stop", name)
		case "bb", "bollinger", "bollinger_bands":
			put("bb", name)
			put("bollinger", name)
		case "sma":
			put("sma", name)
		case "ema":
			put("ema", name)
		}
		put(strings.ToLower(ind.Name), name)
	}
	return aliases
}
