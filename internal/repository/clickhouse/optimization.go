package clickhouse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"kairos/internal/domain/optimization"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
)

// Compile-time check
var _ optimization.ResultRepository = (*ResultRepository)(nil)

// ResultRepository implements optimization.ResultRepository for ClickHouse.
// Parameter and metric maps are stored as JSON strings: the key set differs
// per resolution mode and a fixed column list would lose information.
type ResultRepository struct {
	conn driver.Conn
}

// NewResultRepository creates a new trial result repository
func NewResultRepository(conn driver.Conn) *ResultRepository {
	return &ResultRepository{conn: conn}
}

// InsertTrialResults inserts the ranked top-N of a run in one batch
func (r *ResultRepository) InsertTrialResults(ctx context.Context, runID, symbol, timeframe string, results []optimization.TrialResult) error {
	if len(results) == 0 {
		return nil
	}

	start := time.Now()

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO optimization_results (
			run_id, symbol, timeframe, rank, score,
			params, metrics, json_params, created_at
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare result batch")
	}

	for _, res := range results {
		params, err := json.Marshal(res.Params)
		if err != nil {
			return errors.Wrap(err, "failed to marshal params")
		}

		resultMetrics, err := json.Marshal(res.Metrics)
		if err != nil {
			return errors.Wrap(err, "failed to marshal metrics")
		}

		jsonParams := []byte("{}")
		if len(res.JSONParams) > 0 {
			jsonParams, err = json.Marshal(res.JSONParams)
			if err != nil {
				return errors.Wrap(err, "failed to marshal json params")
			}
		}

		err = batch.Append(
			runID, symbol, timeframe,
			uint32(res.Rank), res.Score,
			string(params), string(resultMetrics), string(jsonParams),
			res.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append result row")
		}
	}

	err = batch.Send()
	metrics.RecordDBQuery("clickhouse", "insert_results", time.Since(start), err)
	return err
}

// GetTopResults retrieves the stored ranking of a run, best first
func (r *ResultRepository) GetTopResults(ctx context.Context, runID string, limit int) ([]optimization.TrialResult, error) {
	query := `
		SELECT rank, score, params, metrics, json_params, created_at
		FROM optimization_results
		WHERE run_id = ?
		ORDER BY rank ASC
		LIMIT ?
	`

	start := time.Now()
	rows, err := r.conn.Query(ctx, query, runID, limit)
	metrics.RecordDBQuery("clickhouse", "select_results", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get top results")
	}
	defer rows.Close()

	var results []optimization.TrialResult

	for rows.Next() {
		var res optimization.TrialResult
		var rank uint32
		var params, resultMetrics, jsonParams string

		err := rows.Scan(&rank, &res.Score, &params, &resultMetrics, &jsonParams, &res.Timestamp)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan result row")
		}

		res.Rank = int(rank)

		if err := json.Unmarshal([]byte(params), &res.Params); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal params")
		}
		if err := json.Unmarshal([]byte(resultMetrics), &res.Metrics); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal metrics")
		}
		if jsonParams != "" && jsonParams != "{}" {
			if err := json.Unmarshal([]byte(jsonParams), &res.JSONParams); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal json params")
			}
		}

		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate result rows")
	}

	return results, nil
}
