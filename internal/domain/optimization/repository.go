package optimization

import (
	"context"
)

// RunRepository is the PostgreSQL-backed registry of optimization runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error)
}

// ResultRepository stores ranked trial results (ClickHouse, batched).
type ResultRepository interface {
	InsertTrialResults(ctx context.Context, runID, symbol, timeframe string, results []TrialResult) error
	GetTopResults(ctx context.Context, runID string, limit int) ([]TrialResult, error)
}
