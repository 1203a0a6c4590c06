package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"kairos/internal/domain/market_data"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
)

// Compile-time check
var _ market_data.Repository = (*MarketDataRepository)(nil)

// MarketDataRepository implements market_data.Repository using ClickHouse
type MarketDataRepository struct {
	conn driver.Conn
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(conn driver.Conn) *MarketDataRepository {
	return &MarketDataRepository{conn: conn}
}

// InsertOHLCV inserts OHLCV candles in batch
func (r *MarketDataRepository) InsertOHLCV(ctx context.Context, candles []market_data.OHLCV) error {
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			exchange, symbol, timeframe, open_time, close_time,
			open, high, low, close, volume, quote_volume, trades, is_closed
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, candle := range candles {
		err := batch.Append(
			candle.Exchange, candle.Symbol, candle.Timeframe,
			candle.OpenTime, candle.CloseTime,
			candle.Open, candle.High, candle.Low, candle.Close,
			candle.Volume, candle.QuoteVolume, candle.Trades, candle.IsClosed,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append candle")
		}
	}

	err = batch.Send()
	metrics.RecordDBQuery("clickhouse", "insert_candles", time.Since(start), err)
	return err
}

// GetOHLCV retrieves candles matching the query, ordered chronologically.
// Chronological order is part of the repository contract: results feed
// straight into market_data.NewSeries.
func (r *MarketDataRepository) GetOHLCV(ctx context.Context, query market_data.OHLCVQuery) ([]market_data.OHLCV, error) {
	var candles []market_data.OHLCV

	sql := `
		SELECT exchange, symbol, timeframe, open_time, close_time,
		       open, high, low, close, volume, quote_volume, trades, is_closed
		FROM candles
		WHERE symbol = $1 AND timeframe = $2`

	args := []interface{}{query.Symbol, query.Timeframe}

	if query.Exchange != "" {
		sql += ` AND exchange = $3`
		args = append(args, query.Exchange)
	}

	if !query.StartTime.IsZero() {
		sql += fmt.Sprintf(` AND open_time >= $%d`, len(args)+1)
		args = append(args, query.StartTime)
	}

	if !query.EndTime.IsZero() {
		sql += fmt.Sprintf(` AND open_time <= $%d`, len(args)+1)
		args = append(args, query.EndTime)
	}

	sql += ` ORDER BY open_time ASC`

	if query.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, query.Limit)
	}

	start := time.Now()
	err := r.conn.Select(ctx, &candles, sql, args...)
	metrics.RecordDBQuery("clickhouse", "select_candles", time.Since(start), err)
	return candles, err
}

// GetLatestOHLCV retrieves the most recent N candles, still in chronological
// order: the window is selected newest-first and re-sorted in the outer query.
func (r *MarketDataRepository) GetLatestOHLCV(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]market_data.OHLCV, error) {
	var candles []market_data.OHLCV

	sql := `
		SELECT * FROM (
			SELECT exchange, symbol, timeframe, open_time, close_time,
			       open, high, low, close, volume, quote_volume, trades, is_closed
			FROM candles
			WHERE exchange = $1 AND symbol = $2 AND timeframe = $3
			ORDER BY open_time DESC
			LIMIT $4
		)
		ORDER BY open_time ASC`

	start := time.Now()
	err := r.conn.Select(ctx, &candles, sql, exchange, symbol, timeframe, limit)
	metrics.RecordDBQuery("clickhouse", "select_latest_candles", time.Since(start), err)
	return candles, err
}
