package market_data

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"kairos/internal/adapters/redis"
	"kairos/internal/domain/market_data"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// CacheConfig contains configuration for candle window caching
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultCacheConfig returns default configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: true,
		TTL:     5 * time.Minute,
	}
}

// cachedWindow is the Redis payload. Raw candles are cached rather than the
// columnar Series so the Series type stays free of serialization tags.
type cachedWindow struct {
	Candles  []market_data.OHLCV `json:"candles"`
	CachedAt time.Time           `json:"cached_at"`
}

// SeriesCache caches candle windows in Redis. An optimization run reads one
// window of a few thousand candles and then hammers it with hundreds of
// trials in memory, so a short TTL is enough to absorb repeated runs against
// the same window without a ClickHouse round trip.
type SeriesCache struct {
	config      CacheConfig
	redisClient *redis.Client
	log         *logger.Logger

	// Metrics
	hits   int64
	misses int64
	sets   int64
}

// NewSeriesCache creates a new series cache
func NewSeriesCache(config CacheConfig, redisClient *redis.Client) *SeriesCache {
	return &SeriesCache{
		config:      config,
		redisClient: redisClient,
		log:         logger.Get().With("component", "series_cache"),
	}
}

// Get retrieves a cached candle window. Returns nil without error on a miss.
func (sc *SeriesCache) Get(ctx context.Context, query market_data.OHLCVQuery) ([]market_data.OHLCV, error) {
	if !sc.config.Enabled {
		return nil, nil
	}

	key := sc.buildCacheKey(query)

	var cached cachedWindow
	err := sc.redisClient.Get(ctx, key, &cached)
	if err != nil {
		if redis.IsMiss(err) {
			sc.misses++
			metrics.RecordCacheAccess("series", false)
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get from cache")
	}

	sc.hits++
	metrics.RecordCacheAccess("series", true)
	sc.log.Debug("Cache hit",
		"symbol", query.Symbol,
		"timeframe", query.Timeframe,
		"candles", len(cached.Candles),
		"age", time.Since(cached.CachedAt),
	)

	return cached.Candles, nil
}

// Set stores a candle window in cache
func (sc *SeriesCache) Set(ctx context.Context, query market_data.OHLCVQuery, candles []market_data.OHLCV) error {
	if !sc.config.Enabled || len(candles) == 0 {
		return nil
	}

	cached := cachedWindow{
		Candles:  candles,
		CachedAt: time.Now(),
	}

	key := sc.buildCacheKey(query)

	if err := sc.redisClient.Set(ctx, key, cached, sc.config.TTL); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}

	sc.sets++
	sc.log.Debug("Cache set",
		"symbol", query.Symbol,
		"timeframe", query.Timeframe,
		"candles", len(candles),
		"ttl", sc.config.TTL,
	)

	return nil
}

// buildCacheKey generates a deterministic key for a candle window query
func (sc *SeriesCache) buildCacheKey(query market_data.OHLCVQuery) string {
	keyData := fmt.Sprintf("%s:%s:%s:%d:%d:%d",
		query.Exchange, query.Symbol, query.Timeframe,
		query.StartTime.Unix(), query.EndTime.Unix(), query.Limit,
	)

	hash := sha256.Sum256([]byte(keyData))
	hashStr := fmt.Sprintf("%x", hash[:8])

	return fmt.Sprintf("series:%s:%s:%s", query.Symbol, query.Timeframe, hashStr)
}

// GetMetrics returns cache metrics for monitoring
func (sc *SeriesCache) GetMetrics() map[string]interface{} {
	total := sc.hits + sc.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(sc.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"enabled":  sc.config.Enabled,
		"hits":     sc.hits,
		"misses":   sc.misses,
		"sets":     sc.sets,
		"hit_rate": hitRate,
		"ttl":      sc.config.TTL.String(),
	}
}
