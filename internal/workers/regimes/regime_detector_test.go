package regimes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/optimization"
	"kairos/pkg/errors"
)

type fakeRunRepo struct {
	runs    []optimization.Run
	listErr error

	listedSymbol string
	listedLimit  int
}

func (f *fakeRunRepo) CreateRun(_ context.Context, _ *optimization.Run) error { return nil }
func (f *fakeRunRepo) FinishRun(_ context.Context, _ *optimization.Run) error { return nil }
func (f *fakeRunRepo) GetRun(_ context.Context, _ string) (*optimization.Run, error) {
	return nil, errors.ErrNotFound
}

func (f *fakeRunRepo) ListRuns(_ context.Context, symbol string, limit int) ([]optimization.Run, error) {
	f.listedSymbol = symbol
	f.listedLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.runs, nil
}

func newDetector(repo optimization.RunRepository) *RegimeDetector {
	return NewRegimeDetector(nil, nil, repo, nil, nil, "binance", "BTCUSDT", "1h", 500, time.Minute, true)
}

func TestRegimeDetector_LatestParams_PicksNewestUsable(t *testing.T) {
	repo := &fakeRunRepo{runs: []optimization.Run{
		{ID: "r1", Timeframe: "1h", Status: optimization.RunStatusRunning},
		{ID: "r2", Timeframe: "4h", Status: optimization.RunStatusCompleted, BestParams: []byte(`{"adx_period": 14}`)},
		{ID: "r3", Timeframe: "1h", Status: optimization.RunStatusCompleted},
		{ID: "r4", Timeframe: "1h", Status: optimization.RunStatusCompleted, BestParams: []byte(`{"adx_period": 21, "strong_trend": 27.5}`)},
	}}
	w := newDetector(repo)

	run, params, err := w.latestParams(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	// r1 is still running, r2 is another timeframe, r3 never stored params
	assert.Equal(t, "r4", run.ID)
	assert.Equal(t, map[string]float64{"adx_period": 21, "strong_trend": 27.5}, params)
	assert.Equal(t, "BTCUSDT", repo.listedSymbol)
	assert.Equal(t, 10, repo.listedLimit)
}

func TestRegimeDetector_LatestParams_NoneUsable(t *testing.T) {
	repo := &fakeRunRepo{runs: []optimization.Run{
		{ID: "r1", Timeframe: "1h", Status: optimization.RunStatusRunning},
		{ID: "r2", Timeframe: "1h", Status: optimization.RunStatusFailed},
	}}
	w := newDetector(repo)

	run, params, err := w.latestParams(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Nil(t, params)
}

func TestRegimeDetector_LatestParams_ListError(t *testing.T) {
	boom := errors.New("pg down")
	w := newDetector(&fakeRunRepo{listErr: boom})

	_, _, err := w.latestParams(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list runs")
}

func TestRegimeDetector_LatestParams_CorruptParams(t *testing.T) {
	repo := &fakeRunRepo{runs: []optimization.Run{
		{ID: "r1", Timeframe: "1h", Status: optimization.RunStatusCompleted, BestParams: []byte(`{not json`)},
	}}
	w := newDetector(repo)

	_, _, err := w.latestParams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode best params of run r1")
}

func TestRegimeDetector_Run_SkipsWithoutCompletedRun(t *testing.T) {
	// Every dependency except the run registry is nil: the pass must bail
	// out before touching any of them.
	w := newDetector(&fakeRunRepo{})

	require.NoError(t, w.Run(context.Background()))
}
