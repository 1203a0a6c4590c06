package market_data

import (
	"context"

	"kairos/internal/domain/market_data"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// Service handles candle access for optimization runs.
// Provides abstraction over the ClickHouse repository with a Redis cache
// in front, since repeated runs tend to ask for the same window.
type Service struct {
	repository market_data.Repository
	cache      *SeriesCache
	log        *logger.Logger
}

// NewService creates a new market data service. cache may be nil to read
// straight from ClickHouse.
func NewService(repository market_data.Repository, cache *SeriesCache) *Service {
	return &Service{
		repository: repository,
		cache:      cache,
		log:        logger.Get().With("component", "market_data"),
	}
}

// GetSeries loads a candle window and converts it to columnar form.
// Cache errors are soft: a broken cache degrades to a ClickHouse read.
func (s *Service) GetSeries(ctx context.Context, query market_data.OHLCVQuery) (*market_data.Series, error) {
	if s.cache != nil {
		candles, err := s.cache.Get(ctx, query)
		if err != nil {
			s.log.Warnw("Series cache read failed", "error", err)
		}
		if len(candles) > 0 {
			metrics.CandlesLoaded.WithLabelValues("cache").Add(float64(len(candles)))
			return market_data.NewSeries(candles), nil
		}
	}

	candles, err := s.repository.GetOHLCV(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "load candles")
	}
	if len(candles) == 0 {
		return nil, errors.Wrapf(errors.ErrNoData, "%s %s", query.Symbol, query.Timeframe)
	}

	metrics.CandlesLoaded.WithLabelValues("clickhouse").Add(float64(len(candles)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, candles); err != nil {
			s.log.Warnw("Series cache write failed", "error", err)
		}
	}

	s.log.Infow("Loaded candle window",
		"symbol", query.Symbol,
		"timeframe", query.Timeframe,
		"candles", len(candles),
	)

	return market_data.NewSeries(candles), nil
}

// GetLatestSeries loads the most recent N candles as a series
func (s *Service) GetLatestSeries(ctx context.Context, exchange, symbol, timeframe string, limit int) (*market_data.Series, error) {
	candles, err := s.repository.GetLatestOHLCV(ctx, exchange, symbol, timeframe, limit)
	if err != nil {
		return nil, errors.Wrap(err, "load latest candles")
	}
	if len(candles) == 0 {
		return nil, errors.Wrapf(errors.ErrNoData, "%s %s", symbol, timeframe)
	}

	metrics.CandlesLoaded.WithLabelValues("clickhouse").Add(float64(len(candles)))

	return market_data.NewSeries(candles), nil
}

// Import stores candles in ClickHouse, used by the CSV backfill path
func (s *Service) Import(ctx context.Context, candles []market_data.OHLCV) error {
	if len(candles) == 0 {
		return nil
	}

	if err := s.repository.InsertOHLCV(ctx, candles); err != nil {
		return errors.Wrap(err, "import candles")
	}

	s.log.Infow("Imported candles", "count", len(candles))
	return nil
}
