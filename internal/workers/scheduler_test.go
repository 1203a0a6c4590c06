package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWorker counts its iterations; run, when set, shapes the outcome.
type stubWorker struct {
	*BaseWorker
	iterations atomic.Int32
	run        func(ctx context.Context) error
}

func newStubWorker(name string, interval time.Duration, enabled bool) *stubWorker {
	return &stubWorker{BaseWorker: NewBaseWorker(name, interval, enabled)}
}

func (w *stubWorker) Run(ctx context.Context) error {
	w.iterations.Add(1)
	if w.run != nil {
		return w.run(ctx)
	}
	return nil
}

func (w *stubWorker) count() int {
	return int(w.iterations.Load())
}

func TestScheduler_RunsWorkerOnStartAndTicks(t *testing.T) {
	scheduler := NewScheduler()
	optimizer := newStubWorker("optimizer", 80*time.Millisecond, true)
	scheduler.RegisterWorker(optimizer)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(220 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// One immediate run plus at least one tick
	assert.GreaterOrEqual(t, optimizer.count(), 2)
}

func TestScheduler_SkipsDisabledWorker(t *testing.T) {
	scheduler := NewScheduler()
	active := newStubWorker("optimizer", 60*time.Millisecond, true)
	parked := newStubWorker("result-pruner", 60*time.Millisecond, false)
	scheduler.RegisterWorker(active)
	scheduler.RegisterWorker(parked)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, active.count(), 0)
	assert.Equal(t, 0, parked.count(), "a disabled worker never runs")
}

func TestScheduler_StopBeforeStartFails(t *testing.T) {
	scheduler := NewScheduler()
	require.Error(t, scheduler.Stop())
}

func TestScheduler_SecondStartFails(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("optimizer", time.Minute, true))

	require.NoError(t, scheduler.Start(context.Background()))
	require.Error(t, scheduler.Start(context.Background()))

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_RejectsRegistrationWhileRunning(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("optimizer", time.Minute, true))

	require.NoError(t, scheduler.Start(context.Background()))
	defer func() {
		require.NoError(t, scheduler.Stop())
	}()

	scheduler.RegisterWorker(newStubWorker("latecomer", time.Minute, true))
	assert.Len(t, scheduler.GetWorkers(), 1)
}

func TestScheduler_ContextCancelHaltsTicks(t *testing.T) {
	scheduler := NewScheduler()
	detector := newStubWorker("regime-detector", 50*time.Millisecond, true)
	scheduler.RegisterWorker(detector)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	time.Sleep(120 * time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	frozen := detector.count()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, frozen, detector.count(), "no iterations after cancellation")

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_StopWaitsForRunningIteration(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool

	slow := newStubWorker("optimizer", 50*time.Millisecond, true)
	slow.run = func(ctx context.Context) error {
		<-release
		finished.Store(true)
		return nil
	}

	scheduler := NewScheduler()
	scheduler.RegisterWorker(slow)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	go func() {
		time.Sleep(100 * time.Millisecond)
		close(release)
	}()

	require.NoError(t, scheduler.Stop())
	assert.True(t, finished.Load(), "Stop must wait out the in-flight iteration")
}

func TestScheduler_GetWorkersKeepsOrder(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("optimizer", time.Minute, true))
	scheduler.RegisterWorker(newStubWorker("regime-detector", time.Minute, false))

	listed := scheduler.GetWorkers()
	require.Len(t, listed, 2)
	assert.Equal(t, "optimizer", listed[0].Name())
	assert.Equal(t, "regime-detector", listed[1].Name())
}

func TestScheduler_PanicBecomesError(t *testing.T) {
	scheduler := NewScheduler()

	panicky := newStubWorker("optimizer", 50*time.Millisecond, true)
	panicky.run = func(ctx context.Context) error {
		panic("boom")
	}
	scheduler.RegisterWorker(panicky)

	require.NoError(t, scheduler.Start(context.Background()))

	// Survive several panicking iterations
	time.Sleep(180 * time.Millisecond)

	require.NoError(t, scheduler.Stop())

	assert.GreaterOrEqual(t, panicky.count(), 2, "scheduler should keep running the worker after panics")

	health := panicky.Health()
	assert.Greater(t, health.ErrorCount, int64(0))
	assert.Contains(t, health.LastError, "panicked")
}

func TestScheduler_RecordsHealth(t *testing.T) {
	scheduler := NewScheduler()

	failing := newStubWorker("failing-worker", 50*time.Millisecond, true)
	failing.run = func(ctx context.Context) error {
		return assert.AnError
	}
	healthy := newStubWorker("healthy-worker", 50*time.Millisecond, true)

	scheduler.RegisterWorker(failing)
	scheduler.RegisterWorker(healthy)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	failingHealth := failing.Health()
	assert.Greater(t, failingHealth.RunCount, int64(0))
	assert.Equal(t, failingHealth.RunCount, failingHealth.ErrorCount)
	assert.NotEmpty(t, failingHealth.LastError)

	healthyHealth := healthy.Health()
	assert.Greater(t, healthyHealth.RunCount, int64(0))
	assert.Equal(t, int64(0), healthyHealth.ErrorCount)
	assert.Empty(t, healthyHealth.LastError)
	assert.False(t, healthyHealth.LastRun.IsZero())
}
