package postgres

import (
	"context"
	"time"

	"kairos/internal/domain/optimization"
	"kairos/internal/metrics"
)

// Compile-time check
var _ optimization.RunRepository = (*RunRepository)(nil)

// RunRepository implements optimization.RunRepository using sqlx
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new run repository. db may be a live connection
// or an open transaction.
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun registers a run before the first trial executes
func (r *RunRepository) CreateRun(ctx context.Context, run *optimization.Run) error {
	query := `
		INSERT INTO optimization_runs (
			id, symbol, timeframe, method, mode, trials,
			best_score, best_params, status, started_at, completed_at, error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Symbol, run.Timeframe, run.Method, run.Mode, run.Trials,
		run.BestScore, run.BestParams, run.Status, run.StartedAt,
		run.CompletedAt, run.Error,
	)
	metrics.RecordDBQuery("postgres", "create_run", time.Since(start), err)

	return err
}

// FinishRun records the terminal state of a run
func (r *RunRepository) FinishRun(ctx context.Context, run *optimization.Run) error {
	query := `
		UPDATE optimization_runs SET
			best_score = $2,
			best_params = $3,
			status = $4,
			completed_at = $5,
			error = $6
		WHERE id = $1`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.BestScore, run.BestParams, run.Status,
		run.CompletedAt, run.Error,
	)
	metrics.RecordDBQuery("postgres", "finish_run", time.Since(start), err)

	return err
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(ctx context.Context, id string) (*optimization.Run, error) {
	var run optimization.Run

	query := `SELECT * FROM optimization_runs WHERE id = $1`

	start := time.Now()
	err := r.db.GetContext(ctx, &run, query, id)
	metrics.RecordDBQuery("postgres", "get_run", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRuns retrieves recent runs, newest first. Empty symbol lists all symbols.
func (r *RunRepository) ListRuns(ctx context.Context, symbol string, limit int) ([]optimization.Run, error) {
	var runs []optimization.Run

	query := `SELECT * FROM optimization_runs`
	args := []interface{}{}

	if symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, symbol)
	}

	query += ` ORDER BY started_at DESC`

	if limit > 0 {
		if symbol != "" {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
		args = append(args, limit)
	}

	start := time.Now()
	err := r.db.SelectContext(ctx, &runs, query, args...)
	metrics.RecordDBQuery("postgres", "list_runs", time.Since(start), err)

	return runs, err
}
