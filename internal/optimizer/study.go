package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// Objective computes one trial's value. Returning ErrPruned marks the trial
// pruned; any other error marks it failed with value 0.0 and the search
// continues.
type Objective func(*Trial) (float64, error)

// Sampler draws a value for one parameter of one trial.
type Sampler interface {
	Sample(study *Study, trial *Trial, name string, dist Distribution) float64
}

// Pruner decides whether a trial should be abandoned given its reported
// intermediate values.
type Pruner interface {
	Prune(study *Study, trial FrozenTrial) bool
}

// StudyConfig configures a study. Zero values fall back to a seeded TPE
// sampler and no pruning.
type StudyConfig struct {
	Sampler Sampler
	Pruner  Pruner
	Seed    int64
}

// Study runs a sequential maximize search: trials execute one at a time and
// never observe each other's live state. Only finished (frozen) trials are
// shared, through the sampler and pruner.
type Study struct {
	sampler Sampler
	pruner  Pruner
	rng     *rand.Rand
	log     *logger.Logger

	mu     sync.RWMutex
	trials []FrozenTrial

	stopRequested atomic.Bool
}

// NewStudy creates a study.
func NewStudy(cfg StudyConfig) *Study {
	s := &Study{
		sampler: cfg.Sampler,
		pruner:  cfg.Pruner,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		log:     logger.Get().With("component", "optimizer"),
	}
	if s.sampler == nil {
		s.sampler = NewTPESampler(TPEConfig{})
	}
	return s
}

// Optimize runs up to nTrials trials. Cancellation is cooperative: a stop
// request or context cancellation takes effect between trials, never
// mid-trial. Trials finished before the stop remain valid.
func (s *Study) Optimize(ctx context.Context, objective Objective, nTrials int) error {
	for i := 0; i < nTrials; i++ {
		select {
		case <-ctx.Done():
			s.log.Infow("Search cancelled", "completed_trials", len(s.Trials()))
			return errors.Wrap(ctx.Err(), "optimize")
		default:
		}
		if s.stopRequested.Load() {
			s.log.Infow("Stop requested, halting search", "completed_trials", len(s.Trials()))
			return nil
		}

		s.runTrial(objective)
	}
	return nil
}

func (s *Study) runTrial(objective Objective) {
	s.mu.RLock()
	number := len(s.trials)
	s.mu.RUnlock()

	trial := newTrial(s, number)
	value, err := s.execTrial(objective, trial)

	var frozen FrozenTrial
	switch {
	case err == nil:
		frozen = trial.freeze(StateComplete, value)
	case errors.Is(err, ErrPruned):
		s.log.Debugw("Trial pruned", "trial", number)
		if v, ok := trial.intermediate[trial.lastStep]; ok {
			value = v
		}
		frozen = trial.freeze(StatePruned, value)
	default:
		s.log.Errorw("Trial failed",
			"trial", number,
			"error", err)
		frozen = trial.freeze(StateFailed, 0.0)
	}

	s.mu.Lock()
	s.trials = append(s.trials, frozen)
	s.mu.Unlock()
}

// execTrial isolates one trial: a panic anywhere inside the objective is
// recovered here and surfaced as a trial failure, so one bad parameter
// combination cannot abort the search.
func (s *Study) execTrial(objective Objective, trial *Trial) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("trial %d panicked: %v", trial.number, r)
		}
	}()
	return objective(trial)
}

// RequestStop asks the study to halt after the current trial. Safe to call
// from another goroutine.
func (s *Study) RequestStop() {
	s.stopRequested.Store(true)
}

// Trials returns a copy of all frozen trials in execution order.
func (s *Study) Trials() []FrozenTrial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FrozenTrial, len(s.trials))
	copy(out, s.trials)
	return out
}

// CompletedTrials returns frozen trials that finished with a value, in
// execution order.
func (s *Study) CompletedTrials() []FrozenTrial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []FrozenTrial
	for _, t := range s.trials {
		if t.State == StateComplete {
			out = append(out, t)
		}
	}
	return out
}

// BestTrial returns the completed trial with the highest value; ties keep
// the earliest trial.
func (s *Study) BestTrial() (FrozenTrial, error) {
	completed := s.CompletedTrials()
	if len(completed) == 0 {
		return FrozenTrial{}, errors.ErrNoCompletedTrials
	}
	best := completed[0]
	for _, t := range completed[1:] {
		if t.Value > best.Value {
			best = t
		}
	}
	return best, nil
}

// RankedTrials returns completed trials sorted by descending value, ties
// broken by trial number.
func (s *Study) RankedTrials() []FrozenTrial {
	ranked := s.CompletedTrials()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Number < ranked[j].Number
	})
	return ranked
}

// intermediateAt collects completed trials' reported values at a step,
// preserving execution order.
func (s *Study) intermediateAt(step int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []float64
	for _, t := range s.trials {
		if t.State != StateComplete {
			continue
		}
		if v, ok := t.Intermediate[step]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Rand exposes the study's seeded source to samplers.
func (s *Study) Rand() *rand.Rand {
	return s.rng
}
