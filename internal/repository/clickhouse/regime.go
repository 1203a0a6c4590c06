package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"kairos/internal/domain/regime"
	"kairos/internal/metrics"
	"kairos/pkg/clickhouse"
	"kairos/pkg/errors"
)

// Compile-time check
var _ regime.Repository = (*RegimePeriodRepository)(nil)

// periodRow is the storage shape of a single regime period. Every row carries
// the run that produced it so readers can always reconstruct one consistent
// segmentation instead of mixing periods from different detections.
type periodRow struct {
	RunID      string
	Symbol     string
	Timeframe  string
	Period     regime.Period
	DetectedAt time.Time
}

// RegimePeriodRepository implements regime.Repository for ClickHouse.
// Writes are buffered through a batch writer: the regime detector emits a
// small burst of rows every cycle and ClickHouse punishes tiny inserts.
// Call Start before storing and Stop to flush the tail on shutdown.
type RegimePeriodRepository struct {
	conn        driver.Conn
	batchWriter *clickhouse.BatchWriter
}

// NewRegimePeriodRepository creates a new regime period repository with batch writer
func NewRegimePeriodRepository(conn driver.Conn) *RegimePeriodRepository {
	repo := &RegimePeriodRepository{
		conn: conn,
	}

	repo.batchWriter = clickhouse.NewBatchWriter(clickhouse.BatchWriterConfig{
		FlushFunc:    repo.flushBatch,
		TableName:    "regime_periods",
		MaxBatchSize: 500,
		MaxAge:       5 * time.Second,
	})

	return repo
}

// Start begins the background flush loop
func (r *RegimePeriodRepository) Start(ctx context.Context) {
	r.batchWriter.Start(ctx)
}

// Stop gracefully shuts down the batch writer
func (r *RegimePeriodRepository) Stop(ctx context.Context) error {
	return r.batchWriter.Stop(ctx)
}

// StorePeriods buffers the full period set produced by one run. Rows become
// visible to readers after the next flush, not immediately.
func (r *RegimePeriodRepository) StorePeriods(ctx context.Context, runID, symbol, timeframe string, periods []regime.Period) error {
	detectedAt := time.Now().UTC()

	for _, p := range periods {
		row := periodRow{
			RunID:      runID,
			Symbol:     symbol,
			Timeframe:  timeframe,
			Period:     p,
			DetectedAt: detectedAt,
		}
		if err := r.batchWriter.Add(ctx, row); err != nil {
			return errors.Wrap(err, "failed to buffer regime period")
		}
	}

	return nil
}

// GetLatestPeriods retrieves the periods of the most recent detection for a
// symbol and timeframe, keeping only those that end at or after since.
func (r *RegimePeriodRepository) GetLatestPeriods(ctx context.Context, symbol, timeframe string, since time.Time) ([]regime.Period, error) {
	query := `
		SELECT label, base_type, start_idx, end_idx, start_time, end_time, bars
		FROM regime_periods
		WHERE symbol = ? AND timeframe = ? AND end_time >= ?
			AND run_id = (
				SELECT run_id FROM regime_periods
				WHERE symbol = ? AND timeframe = ?
				ORDER BY detected_at DESC
				LIMIT 1
			)
		ORDER BY start_idx ASC
	`

	start := time.Now()
	rows, err := r.conn.Query(ctx, query, symbol, timeframe, since, symbol, timeframe)
	metrics.RecordDBQuery("clickhouse", "select_regime_periods", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest periods")
	}
	defer rows.Close()

	var periods []regime.Period

	for rows.Next() {
		var p regime.Period
		var labelStr, baseStr string
		var startIdx, endIdx, bars uint32

		err := rows.Scan(
			&labelStr,
			&baseStr,
			&startIdx,
			&endIdx,
			&p.StartTime,
			&p.EndTime,
			&bars,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan period row")
		}

		p.Label = regime.Label(labelStr)
		p.Base = regime.BaseType(baseStr)
		p.StartIdx = int(startIdx)
		p.EndIdx = int(endIdx)
		p.Bars = int(bars)

		periods = append(periods, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate period rows")
	}

	return periods, nil
}

// flushBatch writes buffered period rows to ClickHouse
func (r *RegimePeriodRepository) flushBatch(ctx context.Context, batch []interface{}) error {
	start := time.Now()

	prepared, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO regime_periods (
			run_id, symbol, timeframe, label, base_type,
			start_idx, end_idx, start_time, end_time, bars, detected_at
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare period batch")
	}

	for _, item := range batch {
		row, ok := item.(periodRow)
		if !ok {
			continue
		}

		err := prepared.Append(
			row.RunID, row.Symbol, row.Timeframe,
			string(row.Period.Label), string(row.Period.Base),
			uint32(row.Period.StartIdx), uint32(row.Period.EndIdx),
			row.Period.StartTime, row.Period.EndTime,
			uint32(row.Period.Bars), row.DetectedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append period row")
		}
	}

	err = prepared.Send()
	metrics.RecordDBQuery("clickhouse", "insert_regime_periods", time.Since(start), err)
	return err
}
