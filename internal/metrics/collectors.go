package metrics

import (
	"context"
	"time"

	"kairos/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// RunCollector collects optimization state from the backing stores on each
// scrape: run counts from Postgres, stored data volumes from ClickHouse.
type RunCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	totalRuns     *prometheus.Desc
	bestRunScore  *prometheus.Desc
	candleRows    *prometheus.Desc
	periodRows    *prometheus.Desc
	trialRows     *prometheus.Desc
	lastRunFinish *prometheus.Desc
}

// NewRunCollector creates a new run statistics collector
func NewRunCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *RunCollector {
	return &RunCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		totalRuns: prometheus.NewDesc(
			"kairos_total_runs",
			"Total number of optimization runs by status",
			[]string{"status"}, nil,
		),
		bestRunScore: prometheus.NewDesc(
			"kairos_run_best_score",
			"Best score per series across completed runs",
			[]string{"symbol", "timeframe"}, nil,
		),
		candleRows: prometheus.NewDesc(
			"kairos_candle_rows",
			"Total OHLCV rows stored in ClickHouse",
			nil, nil,
		),
		periodRows: prometheus.NewDesc(
			"kairos_regime_period_rows",
			"Total regime period rows stored in ClickHouse",
			nil, nil,
		),
		trialRows: prometheus.NewDesc(
			"kairos_trial_result_rows",
			"Total trial result rows stored in ClickHouse",
			nil, nil,
		),
		lastRunFinish: prometheus.NewDesc(
			"kairos_last_run_completed_timestamp",
			"Unix timestamp of the most recently completed run",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *RunCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalRuns
	ch <- c.bestRunScore
	ch <- c.candleRows
	ch <- c.periodRows
	ch <- c.trialRows
	ch <- c.lastRunFinish
}

// Collect implements prometheus.Collector
func (c *RunCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectRunStats(ctx, ch)
	c.collectBestScores(ctx, ch)
	c.collectRowCounts(ctx, ch)
}

func (c *RunCollector) collectRunStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type runStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []runStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM optimization_runs
		GROUP BY status
	`)
	if err != nil {
		c.log.Error("Failed to collect run stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.totalRuns,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Status,
		)
	}

	var last time.Time
	err = c.postgres.GetContext(ctx, &last, `
		SELECT COALESCE(MAX(completed_at), to_timestamp(0))
		FROM optimization_runs
		WHERE status = 'completed'
	`)
	if err == nil && !last.IsZero() {
		ch <- prometheus.MustNewConstMetric(
			c.lastRunFinish,
			prometheus.GaugeValue,
			float64(last.Unix()),
		)
	}
}

func (c *RunCollector) collectBestScores(ctx context.Context, ch chan<- prometheus.Metric) {
	type bestStat struct {
		Symbol    string  `db:"symbol"`
		Timeframe string  `db:"timeframe"`
		Score     float64 `db:"score"`
	}

	var stats []bestStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT symbol, timeframe, MAX(best_score) as score
		FROM optimization_runs
		WHERE status = 'completed'
		GROUP BY symbol, timeframe
	`)
	if err != nil {
		c.log.Error("Failed to collect best scores", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.bestRunScore,
			prometheus.GaugeValue,
			stat.Score,
			stat.Symbol,
			stat.Timeframe,
		)
	}
}

func (c *RunCollector) collectRowCounts(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.clickhouse == nil {
		return
	}

	counts := []struct {
		desc  *prometheus.Desc
		query string
	}{
		{c.candleRows, "SELECT count() FROM candles"},
		{c.periodRows, "SELECT count() FROM regime_periods"},
		{c.trialRows, "SELECT count() FROM optimization_results"},
	}

	for _, q := range counts {
		var count uint64
		if err := c.clickhouse.QueryRow(ctx, q.query).Scan(&count); err != nil {
			c.log.Error("Failed to collect row count", "query", q.query, "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(q.desc, prometheus.GaugeValue, float64(count))
	}
}

// RegisterRunCollector registers the run statistics collector
func RegisterRunCollector(collector *RunCollector) {
	prometheus.MustRegister(collector)
}
