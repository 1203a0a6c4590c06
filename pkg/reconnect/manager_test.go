package reconnect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/pkg/logger"
)

func testManager(p Policy) *Manager {
	return NewManager(p, logger.Get().With("component", "reconnect_test"))
}

func TestManager_BackoffProgression(t *testing.T) {
	m := testManager(Policy{
		MinBackoff:  time.Millisecond,
		MaxBackoff:  8 * time.Millisecond,
		Multiplier:  2,
		MaxFailures: 100,
	})

	assert.Equal(t, time.Millisecond, m.GetStats().NextBackoff)

	m.Failure()
	assert.Equal(t, 2*time.Millisecond, m.GetStats().NextBackoff)
	m.Failure()
	assert.Equal(t, 4*time.Millisecond, m.GetStats().NextBackoff)
	m.Failure()
	m.Failure()
	// Capped at the ceiling.
	assert.Equal(t, 8*time.Millisecond, m.GetStats().NextBackoff)
	assert.Equal(t, 4, m.GetStats().Failures)

	m.Success()
	stats := m.GetStats()
	assert.Equal(t, time.Millisecond, stats.NextBackoff)
	assert.Equal(t, 0, stats.Failures)
	assert.Equal(t, 1, stats.Reconnects)
}

func TestManager_Defaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, time.Second, p.MinBackoff)
	assert.Equal(t, 2*time.Minute, p.MaxBackoff)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 10, p.MaxFailures)
	assert.Equal(t, time.Minute, p.ResetAfter)
	assert.Equal(t, 0.2, p.Jitter)
}

func TestManager_CircuitOpens(t *testing.T) {
	m := testManager(Policy{
		MinBackoff:  time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
		Multiplier:  2,
		MaxFailures: 3,
		ResetAfter:  time.Hour,
	})

	m.Failure()
	m.Failure()
	assert.False(t, m.Open())

	m.Failure()
	require.True(t, m.Open())

	err := m.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	m.Success()
	assert.False(t, m.Open())
	require.NoError(t, m.Wait(context.Background()))
}

func TestManager_HalfOpenAfterReset(t *testing.T) {
	m := testManager(Policy{
		MinBackoff:  time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
		Multiplier:  2,
		MaxFailures: 2,
		ResetAfter:  30 * time.Millisecond,
	})

	m.Failure()
	m.Failure()
	require.True(t, m.Open())

	time.Sleep(40 * time.Millisecond)

	// One attempt is let through, then the circuit re-arms.
	require.NoError(t, m.Wait(context.Background()))
	err := m.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)

	m.Success()
	assert.False(t, m.Open())
}

func TestManager_WaitHonorsContext(t *testing.T) {
	m := testManager(Policy{
		MinBackoff:  500 * time.Millisecond,
		MaxBackoff:  time.Second,
		Multiplier:  2,
		MaxFailures: 100,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}
