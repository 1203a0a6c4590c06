package optimizer

import (
	"math"

	"kairos/pkg/errors"
)

// ErrPruned is returned by an objective to signal a cooperative early stop.
// A pruned trial is first-class: excluded from ranking, never treated as a
// failure.
var ErrPruned = errors.New("trial pruned")

// TrialState describes how a trial finished.
type TrialState string

const (
	StateComplete TrialState = "complete"
	StatePruned   TrialState = "pruned"
	StateFailed   TrialState = "failed"
)

// Valid checks if trial state is valid
func (s TrialState) Valid() bool {
	switch s {
	case StateComplete, StatePruned, StateFailed:
		return true
	}
	return false
}

// String returns string representation
func (s TrialState) String() string {
	return string(s)
}

// Distribution describes one parameter's sampling domain: a step lattice
// over [Low, High] inclusive.
type Distribution struct {
	Low   float64
	High  float64
	Step  float64
	IsInt bool
}

// Steps returns the number of lattice points.
func (d Distribution) Steps() int {
	if d.Step <= 0 || d.High < d.Low {
		return 0
	}
	return int(math.Floor((d.High-d.Low)/d.Step+1e-9)) + 1
}

// Snap clamps v into the domain and rounds onto the lattice.
func (d Distribution) Snap(v float64) float64 {
	if v <= d.Low {
		return d.Low
	}
	if v >= d.High {
		return d.High
	}
	k := math.Round((v - d.Low) / d.Step)
	snapped := d.Low + k*d.Step
	if snapped > d.High {
		snapped = d.High
	}
	return snapped
}

// FrozenTrial is the immutable record a study keeps per finished trial.
type FrozenTrial struct {
	Number        int
	State         TrialState
	Value         float64
	Params        map[string]float64
	Distributions map[string]Distribution
	Intermediate  map[int]float64
	UserAttrs     map[string]float64
}

// Trial is the live handle an objective uses to draw parameters, report an
// intermediate value, and check for pruning.
type Trial struct {
	study  *Study
	number int

	params        map[string]float64
	distributions map[string]Distribution
	intermediate  map[int]float64
	userAttrs     map[string]float64
	lastStep      int
	relative      map[string]float64 // multivariate joint sample, lazily built
}

func newTrial(study *Study, number int) *Trial {
	return &Trial{
		study:         study,
		number:        number,
		params:        make(map[string]float64),
		distributions: make(map[string]Distribution),
		intermediate:  make(map[int]float64),
		userAttrs:     make(map[string]float64),
		lastStep:      -1,
	}
}

// Number returns the zero-based trial index.
func (t *Trial) Number() int {
	return t.number
}

// SuggestFloat draws a float parameter on the lattice low + k*step,
// inclusive of both bounds.
func (t *Trial) SuggestFloat(name string, low, high, step float64) float64 {
	return t.suggest(name, Distribution{Low: low, High: high, Step: step})
}

// SuggestInt draws an integer parameter on the lattice low + k*step.
func (t *Trial) SuggestInt(name string, low, high, step int) int {
	v := t.suggest(name, Distribution{
		Low:   float64(low),
		High:  float64(high),
		Step:  float64(step),
		IsInt: true,
	})
	return int(math.Round(v))
}

func (t *Trial) suggest(name string, dist Distribution) float64 {
	if v, ok := t.params[name]; ok {
		return v
	}
	v := dist.Snap(t.study.sampler.Sample(t.study, t, name, dist))
	t.params[name] = v
	t.distributions[name] = dist
	return v
}

// Report records an intermediate objective value at the given step.
func (t *Trial) Report(step int, value float64) {
	t.intermediate[step] = value
	if step > t.lastStep {
		t.lastStep = step
	}
}

// ShouldPrune asks the study's pruner whether the trial should be
// abandoned, based on the values reported so far.
func (t *Trial) ShouldPrune() bool {
	if t.study.pruner == nil || t.lastStep < 0 {
		return false
	}
	return t.study.pruner.Prune(t.study, t.snapshot())
}

// SetUserAttr attaches a named metric to the trial for later extraction.
func (t *Trial) SetUserAttr(key string, value float64) {
	t.userAttrs[key] = value
}

func (t *Trial) snapshot() FrozenTrial {
	return FrozenTrial{
		Number:        t.number,
		Params:        t.params,
		Distributions: t.distributions,
		Intermediate:  t.intermediate,
		UserAttrs:     t.userAttrs,
	}
}

func (t *Trial) freeze(state TrialState, value float64) FrozenTrial {
	f := FrozenTrial{
		Number:        t.number,
		State:         state,
		Value:         value,
		Params:        make(map[string]float64, len(t.params)),
		Distributions: make(map[string]Distribution, len(t.distributions)),
		Intermediate:  make(map[int]float64, len(t.intermediate)),
		UserAttrs:     make(map[string]float64, len(t.userAttrs)),
	}
	for k, v := range t.params {
		f.Params[k] = v
	}
	for k, v := range t.distributions {
		f.Distributions[k] = v
	}
	for k, v := range t.intermediate {
		f.Intermediate[k] = v
	}
	for k, v := range t.userAttrs {
		f.UserAttrs[k] = v
	}
	return f
}
