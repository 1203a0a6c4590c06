package regime

import (
	"context"
	"time"
)

// Repository defines the interface for persisted regime periods
type Repository interface {
	StorePeriods(ctx context.Context, runID, symbol, timeframe string, periods []Period) error
	GetLatestPeriods(ctx context.Context, symbol, timeframe string, since time.Time) ([]Period, error)
}
