package market_data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/domain/market_data"
	"kairos/internal/testsupport"
)

func cacheQuery() market_data.OHLCVQuery {
	return market_data.OHLCVQuery{
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Timeframe: "5m",
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		Limit:     2000,
	}
}

func TestSeriesCache_KeyDeterministic(t *testing.T) {
	sc := NewSeriesCache(DefaultCacheConfig(), nil)

	key := sc.buildCacheKey(cacheQuery())
	assert.Equal(t, key, sc.buildCacheKey(cacheQuery()))
	assert.Regexp(t, "^series:BTCUSDT:5m:[0-9a-f]{16}$", key)
}

func TestSeriesCache_KeySensitivity(t *testing.T) {
	sc := NewSeriesCache(DefaultCacheConfig(), nil)
	base := sc.buildCacheKey(cacheQuery())

	variants := map[string]func(*market_data.OHLCVQuery){
		"exchange":  func(q *market_data.OHLCVQuery) { q.Exchange = "bybit" },
		"symbol":    func(q *market_data.OHLCVQuery) { q.Symbol = "ETHUSDT" },
		"timeframe": func(q *market_data.OHLCVQuery) { q.Timeframe = "1h" },
		"start":     func(q *market_data.OHLCVQuery) { q.StartTime = q.StartTime.Add(time.Minute) },
		"end":       func(q *market_data.OHLCVQuery) { q.EndTime = q.EndTime.Add(time.Minute) },
		"limit":     func(q *market_data.OHLCVQuery) { q.Limit = 500 },
	}
	for name, mutate := range variants {
		q := cacheQuery()
		mutate(&q)
		assert.NotEqual(t, base, sc.buildCacheKey(q), "field %s should change the key", name)
	}
}

func TestSeriesCache_Disabled(t *testing.T) {
	sc := NewSeriesCache(CacheConfig{Enabled: false}, nil)

	candles, err := sc.Get(context.Background(), cacheQuery())
	require.NoError(t, err)
	assert.Nil(t, candles)

	err = sc.Set(context.Background(), cacheQuery(), []market_data.OHLCV{{Symbol: "BTCUSDT"}})
	require.NoError(t, err)

	m := sc.GetMetrics()
	assert.Equal(t, false, m["enabled"])
	assert.Equal(t, int64(0), m["sets"])
}

func TestSeriesCache_SetSkipsEmptyWindow(t *testing.T) {
	sc := NewSeriesCache(DefaultCacheConfig(), nil)

	// An empty window never reaches Redis, so a nil client is safe here.
	require.NoError(t, sc.Set(context.Background(), cacheQuery(), nil))
	assert.Equal(t, int64(0), sc.sets)
}

func TestSeriesCache_Metrics(t *testing.T) {
	sc := NewSeriesCache(DefaultCacheConfig(), nil)

	m := sc.GetMetrics()
	assert.Equal(t, 0.0, m["hit_rate"])
	assert.Equal(t, "5m0s", m["ttl"])

	sc.hits = 3
	sc.misses = 1
	sc.sets = 2

	m = sc.GetMetrics()
	assert.Equal(t, int64(3), m["hits"])
	assert.Equal(t, int64(1), m["misses"])
	assert.Equal(t, int64(2), m["sets"])
	assert.Equal(t, 75.0, m["hit_rate"])
}

func TestSeriesCache_RedisRoundTrip(t *testing.T) {
	client := testsupport.NewTestRedis(t)
	sc := NewSeriesCache(CacheConfig{Enabled: true, TTL: time.Minute}, client)
	ctx := context.Background()

	query := cacheQuery()

	// Cold read misses without error.
	candles, err := sc.Get(ctx, query)
	require.NoError(t, err)
	assert.Nil(t, candles)

	window := []market_data.OHLCV{
		{
			Symbol: "BTCUSDT", Timeframe: "5m",
			Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000,
			OpenTime: query.StartTime, CloseTime: query.StartTime.Add(5 * time.Minute),
		},
		{
			Symbol: "BTCUSDT", Timeframe: "5m",
			Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 1200,
			OpenTime: query.StartTime.Add(5 * time.Minute), CloseTime: query.StartTime.Add(10 * time.Minute),
		},
	}
	require.NoError(t, sc.Set(ctx, query, window))

	got, err := sc.Get(ctx, query)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.5, got[0].Close)
	assert.WithinDuration(t, window[1].OpenTime, got[1].OpenTime, time.Second)

	// A different window is a miss, not a stale hit.
	other := cacheQuery()
	other.Symbol = "ETHUSDT"
	miss, err := sc.Get(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, miss)
}
