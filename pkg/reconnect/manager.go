package reconnect

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// ErrCircuitOpen is returned by Wait while the circuit breaker blocks retries.
var ErrCircuitOpen = errors.New("reconnect: circuit open")

// Policy configures backoff growth and the circuit breaker.
// Zero values fall back to defaults suited for a broker connection.
type Policy struct {
	MinBackoff  time.Duration // first retry delay
	MaxBackoff  time.Duration // backoff ceiling
	Multiplier  float64       // growth factor per consecutive failure
	MaxFailures int           // consecutive failures before the circuit opens
	ResetAfter  time.Duration // how long an open circuit blocks retries
	Jitter      float64       // fraction of the delay added randomly, 0..1
}

func (p Policy) withDefaults() Policy {
	if p.MinBackoff == 0 {
		p.MinBackoff = time.Second
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = 2 * time.Minute
	}
	if p.Multiplier == 0 {
		p.Multiplier = 2.0
	}
	if p.MaxFailures == 0 {
		p.MaxFailures = 10
	}
	if p.ResetAfter == 0 {
		p.ResetAfter = time.Minute
	}
	if p.Jitter == 0 {
		p.Jitter = 0.2
	}
	return p
}

// Manager tracks consecutive connection failures and paces retries with
// exponential backoff. After MaxFailures in a row the circuit opens and Wait
// refuses immediately until ResetAfter elapses, at which point one half-open
// attempt is let through. Used by the Kafka consumer read loop; any caller
// with a retry-until-healthy loop can share it.
type Manager struct {
	policy Policy

	mu         sync.Mutex
	backoff    time.Duration
	failures   int
	reconnects int
	openedAt   time.Time // zero while the circuit is closed

	rng *rand.Rand
	log *logger.Logger
}

// NewManager creates a reconnect manager with the given policy.
func NewManager(policy Policy, log *logger.Logger) *Manager {
	p := policy.withDefaults()
	return &Manager{
		policy:  p,
		backoff: p.MinBackoff,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

// Failure records one failed attempt: the next Wait sleeps longer, and the
// circuit opens once MaxFailures consecutive failures accumulate.
func (m *Manager) Failure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++

	next := time.Duration(float64(m.backoff) * m.policy.Multiplier)
	if next > m.policy.MaxBackoff {
		next = m.policy.MaxBackoff
	}
	m.backoff = next

	if m.failures >= m.policy.MaxFailures && m.openedAt.IsZero() {
		m.openedAt = time.Now()
		m.log.Errorw("Circuit opened after consecutive failures",
			"failures", m.failures,
			"reset_after", m.policy.ResetAfter,
		)
	}
}

// Success resets the backoff and closes the circuit.
func (m *Manager) Success() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.reconnects++
		m.log.Infow("Connection recovered",
			"after_failures", m.failures,
			"total_reconnects", m.reconnects,
		)
	}

	m.failures = 0
	m.backoff = m.policy.MinBackoff
	m.openedAt = time.Time{}
}

// Wait sleeps the current backoff (with jitter) before the next attempt.
// Returns ErrCircuitOpen without sleeping while the circuit blocks retries,
// and the context error if cancelled mid-sleep. After ResetAfter the circuit
// moves to half-open and Wait lets a single attempt proceed at max backoff.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	if !m.openedAt.IsZero() {
		if elapsed := time.Since(m.openedAt); elapsed < m.policy.ResetAfter {
			m.mu.Unlock()
			return errors.Wrapf(ErrCircuitOpen, "retry in %s", (m.policy.ResetAfter - elapsed).Round(time.Second))
		}
		m.log.Infow("Circuit half-open, allowing one attempt")
		m.openedAt = time.Now() // re-arm: another failure keeps the circuit open
	}

	delay := m.backoff
	if m.policy.Jitter > 0 {
		delay += time.Duration(m.rng.Float64() * m.policy.Jitter * float64(delay))
	}
	m.mu.Unlock()

	m.log.Debugw("Backing off before retry", "delay", delay)

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open reports whether the circuit breaker currently blocks retries.
func (m *Manager) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.openedAt.IsZero() && time.Since(m.openedAt) < m.policy.ResetAfter
}

// Stats is a snapshot for health endpoints and logs.
type Stats struct {
	Failures    int           `json:"failures"`
	Reconnects  int           `json:"reconnects"`
	NextBackoff time.Duration `json:"next_backoff"`
	CircuitOpen bool          `json:"circuit_open"`
}

// GetStats returns the current counters.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Failures:    m.failures,
		Reconnects:  m.reconnects,
		NextBackoff: m.backoff,
		CircuitOpen: !m.openedAt.IsZero() && time.Since(m.openedAt) < m.policy.ResetAfter,
	}
}
