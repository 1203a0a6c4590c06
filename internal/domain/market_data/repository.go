package market_data

import (
	"context"
)

// Repository is the candle store backing optimization runs.
//
// InsertOHLCV lands backfilled candles in batch. GetOHLCV pulls the
// chronological window a run scores against. GetLatestOHLCV serves the
// detector path, which only ever wants the most recent N bars.
type Repository interface {
	InsertOHLCV(ctx context.Context, candles []OHLCV) error
	GetOHLCV(ctx context.Context, query OHLCVQuery) ([]OHLCV, error)
	GetLatestOHLCV(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]OHLCV, error)
}
