package workers

import (
	"context"
	"sync"
	"time"

	"kairos/pkg/logger"
)

// Worker is one scheduled background job. Run performs a single iteration and
// returns; the scheduler re-invokes it every Interval.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// WorkerWithHealth is implemented by workers that track their own run
// counters, which in practice means everything embedding BaseWorker.
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	SetEnabled(enabled bool)
}

// WorkerHealth is the per-worker snapshot served by the /workers endpoint.
type WorkerHealth struct {
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	AvgDuration time.Duration `json:"avg_duration"`
	Enabled     bool          `json:"enabled"`
}

// runStats accumulates across iterations. Guarded by BaseWorker.mu.
type runStats struct {
	lastRun   time.Time
	lastError error
	runs      int64
	failures  int64
	total     time.Duration
}

// BaseWorker carries the name/interval/enabled plumbing and the run counters,
// so concrete workers only implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *logger.Logger

	mu      sync.RWMutex
	enabled bool
	stats   runStats
}

func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// SetEnabled flips the worker on or off for subsequent scheduler ticks.
func (w *BaseWorker) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
	w.log.Infof("Enabled set to %v", enabled)
}

// Log returns the worker-tagged logger.
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health snapshots the counters. LastError is rendered to a string so the
// JSON payload never carries a nil-vs-empty distinction.
func (w *BaseWorker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()

	h := WorkerHealth{
		LastRun:    w.stats.lastRun,
		RunCount:   w.stats.runs,
		ErrorCount: w.stats.failures,
		Enabled:    w.enabled,
	}
	if w.stats.runs > 0 {
		h.AvgDuration = w.stats.total / time.Duration(w.stats.runs)
	}
	if w.stats.lastError != nil {
		h.LastError = w.stats.lastError.Error()
	}
	return h
}

// RecordRun counts a clean iteration and clears any previous error.
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.lastRun = time.Now()
	w.stats.runs++
	w.stats.total += duration
	w.stats.lastError = nil
}

// RecordError counts a failed iteration and keeps err for the next snapshot.
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.lastRun = time.Now()
	w.stats.runs++
	w.stats.failures++
	w.stats.total += duration
	w.stats.lastError = err
}
