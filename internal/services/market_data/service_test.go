package market_data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/market_data"
	"kairos/pkg/errors"
)

type fakeRepo struct {
	candles  []market_data.OHLCV
	err      error
	query    market_data.OHLCVQuery
	latest   []any
	inserted []market_data.OHLCV
}

func (r *fakeRepo) InsertOHLCV(_ context.Context, candles []market_data.OHLCV) error {
	r.inserted = append(r.inserted, candles...)
	return r.err
}

func (r *fakeRepo) GetOHLCV(_ context.Context, query market_data.OHLCVQuery) ([]market_data.OHLCV, error) {
	r.query = query
	return r.candles, r.err
}

func (r *fakeRepo) GetLatestOHLCV(_ context.Context, exchange, symbol, timeframe string, limit int) ([]market_data.OHLCV, error) {
	r.latest = []any{exchange, symbol, timeframe, limit}
	return r.candles, r.err
}

func makeCandles(n int) []market_data.OHLCV {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market_data.OHLCV, n)
	for i := range candles {
		candles[i] = market_data.OHLCV{
			Exchange:  "binance",
			Symbol:    "BTCUSDT",
			Timeframe: "5m",
			OpenTime:  base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    1000,
			IsClosed:  true,
		}
	}
	return candles
}

func TestService_GetSeries(t *testing.T) {
	repo := &fakeRepo{candles: makeCandles(3)}
	svc := NewService(repo, nil)

	series, err := svc.GetSeries(context.Background(), cacheQuery())
	require.NoError(t, err)

	assert.Equal(t, 3, series.Len())
	assert.Equal(t, "BTCUSDT", series.Symbol)
	assert.Equal(t, "5m", series.Timeframe)
	assert.Equal(t, []float64{100.5, 101.5, 102.5}, series.Close)
	assert.True(t, series.Times[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	// The query reaches the repository untouched.
	assert.Equal(t, cacheQuery(), repo.query)
}

func TestService_GetSeries_Empty(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.GetSeries(context.Background(), cacheQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoData)
	assert.Contains(t, err.Error(), "BTCUSDT 5m")
}

func TestService_GetSeries_RepoError(t *testing.T) {
	boom := errors.New("clickhouse down")
	svc := NewService(&fakeRepo{err: boom}, nil)

	_, err := svc.GetSeries(context.Background(), cacheQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load candles")
}

func TestService_GetSeries_DisabledCacheFallsThrough(t *testing.T) {
	repo := &fakeRepo{candles: makeCandles(2)}
	svc := NewService(repo, NewSeriesCache(CacheConfig{Enabled: false}, nil))

	series, err := svc.GetSeries(context.Background(), cacheQuery())
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestService_GetLatestSeries(t *testing.T) {
	repo := &fakeRepo{candles: makeCandles(4)}
	svc := NewService(repo, nil)

	series, err := svc.GetLatestSeries(context.Background(), "binance", "BTCUSDT", "5m", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, series.Len())
	assert.Equal(t, []any{"binance", "BTCUSDT", "5m", 4}, repo.latest)

	empty := NewService(&fakeRepo{}, nil)
	_, err = empty.GetLatestSeries(context.Background(), "binance", "ETHUSDT", "1h", 10)
	assert.ErrorIs(t, err, errors.ErrNoData)
}

func TestService_Import(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	candles := makeCandles(5)
	require.NoError(t, svc.Import(context.Background(), candles))
	assert.Len(t, repo.inserted, 5)

	// Empty import is a no-op, not an error.
	require.NoError(t, svc.Import(context.Background(), nil))
	assert.Len(t, repo.inserted, 5)
}

func TestService_ImportError(t *testing.T) {
	boom := errors.New("batch failed")
	svc := NewService(&fakeRepo{err: boom}, nil)

	err := svc.Import(context.Background(), makeCandles(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "import candles")
}
