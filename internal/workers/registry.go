package workers

import (
	"sync"

	"kairos/pkg/errors"
)

// Registry is the named set of workers a scheduler runs. Names are unique;
// iteration follows registration order so monitoring output stays stable.
// Health is not mirrored here: workers that embed BaseWorker report their
// own counters and the registry only snapshots them.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Worker
}

// NewRegistry creates an empty worker registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Worker)}
}

// Add registers a worker under its name
func (r *Registry) Add(w Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.byName[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "worker %s", name)
	}

	r.byName[name] = w
	r.order = append(r.order, name)
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.byName[name]
	return w, ok
}

// List returns all workers in registration order
func (r *Registry) List() []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Worker, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered worker names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Count returns the number of registered workers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byName)
}

// CountEnabled returns how many registered workers are currently enabled
func (r *Registry) CountEnabled() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, w := range r.byName {
		if w.Enabled() {
			n++
		}
	}
	return n
}

// Health snapshots per-worker health for every worker that reports it
func (r *Registry) Health() map[string]WorkerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]WorkerHealth, len(r.byName))
	for name, w := range r.byName {
		if hw, ok := w.(WorkerWithHealth); ok {
			out[name] = hw.Health()
		}
	}
	return out
}

// SetEnabled toggles a worker by name
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.RLock()
	w, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "worker %s", name)
	}

	hw, ok := w.(WorkerWithHealth)
	if !ok {
		return errors.Wrapf(errors.ErrInvalidInput, "worker %s cannot be toggled", name)
	}

	hw.SetEnabled(enabled)
	return nil
}
