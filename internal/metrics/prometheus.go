package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trial metrics
	TrialExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_trial_executions_total",
			Help: "Total number of optimization trials by terminal state",
		},
		[]string{"mode", "state"}, // state: complete|pruned|failed
	)

	TrialDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kairos_trial_duration_seconds",
			Help:    "Single trial execution duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"mode"},
	)

	TrialScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kairos_trial_score",
			Help:    "Distribution of trial scores (0-100)",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"mode"},
	)

	// Run metrics
	RunExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_run_executions_total",
			Help: "Total number of optimization runs",
		},
		[]string{"mode", "status"}, // status: completed|failed
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kairos_run_duration_seconds",
			Help:    "Full optimization run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"mode"},
	)

	BestScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kairos_best_score",
			Help: "Best score of the most recent run per series",
		},
		[]string{"symbol", "timeframe"},
	)

	// Data metrics
	CandlesLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_candles_loaded_total",
			Help: "Total candles loaded into optimization runs",
		},
		[]string{"source"}, // source: clickhouse|cache|csv
	)

	CacheAccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_cache_access_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"cache", "result"}, // result: hit|miss
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kairos_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kairos_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kairos_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kairos_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(TrialExecutions)
	prometheus.MustRegister(TrialDuration)
	prometheus.MustRegister(TrialScore)

	prometheus.MustRegister(RunExecutions)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(BestScore)

	prometheus.MustRegister(CandlesLoaded)
	prometheus.MustRegister(CacheAccess)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)

	prometheus.MustRegister(KafkaMessages)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTrial records one finished trial
func RecordTrial(mode, state string, duration time.Duration, score float64) {
	TrialExecutions.WithLabelValues(mode, state).Inc()
	TrialDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if state == "complete" {
		TrialScore.WithLabelValues(mode).Observe(score)
	}
}

// RecordRun records a finished optimization run
func RecordRun(mode string, duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}

	RunExecutions.WithLabelValues(mode, status).Inc()
	RunDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed Kafka message
func RecordKafkaMessage(topic, direction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	KafkaMessages.WithLabelValues(topic, direction, status).Inc()
}

// RecordCacheAccess records a cache lookup outcome
func RecordCacheAccess(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	CacheAccess.WithLabelValues(cache, result).Inc()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}
