package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"kairos/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Optimizer     OptimizerConfig
	Data          DataConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
	API           APIConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"kairos"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"kairos"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"kairos"`
}

// OptimizerConfig carries the search defaults the daemon and workers use.
type OptimizerConfig struct {
	Trials int    `envconfig:"OPTIMIZER_TRIALS" default:"200"`
	Method string `envconfig:"OPTIMIZER_METHOD" default:"tpe"`
	Pruner string `envconfig:"OPTIMIZER_PRUNER" default:"median"`
	Seed   int64  `envconfig:"OPTIMIZER_SEED" default:"0"`
	TopN   int    `envconfig:"OPTIMIZER_TOP_N" default:"20"`

	// Mode forces a resolution mode (simple|legacy|json); empty auto-detects.
	Mode string `envconfig:"OPTIMIZER_MODE"`

	// SpacePath points at a parameter space JSON file; empty uses the
	// built-in default ranges.
	SpacePath string `envconfig:"OPTIMIZER_SPACE"`

	// RegimeConfigPath points at a v2 JSON regime config. Setting it selects
	// JSON mode unless Mode overrides.
	RegimeConfigPath string `envconfig:"OPTIMIZER_REGIME_CONFIG"`

	// ExportPath, when set, receives the export document after each run.
	ExportPath string `envconfig:"OPTIMIZER_EXPORT_PATH"`
}

// DataConfig describes which series the daemon optimizes.
type DataConfig struct {
	Exchange     string        `envconfig:"DATA_EXCHANGE" default:"binance"`
	Symbol       string        `envconfig:"DATA_SYMBOL" default:"BTCUSDT"`
	Timeframe    string        `envconfig:"DATA_TIMEFRAME" default:"1h"`
	LookbackBars int           `envconfig:"DATA_LOOKBACK_BARS" default:"2000"`
	CacheTTL     time.Duration `envconfig:"DATA_CACHE_TTL" default:"5m"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background workers
type WorkerConfig struct {
	// Full parameter search per series (expensive, infrequent)
	OptimizerInterval time.Duration `envconfig:"WORKER_OPTIMIZER_INTERVAL" default:"6h"`

	// Reclassification with the current best parameters (cheap, frequent)
	RegimeDetectorInterval time.Duration `envconfig:"WORKER_REGIME_DETECTOR_INTERVAL" default:"5m"`

	// Distributed lock TTL guarding concurrent runs on the same series
	LockTTL time.Duration `envconfig:"WORKER_LOCK_TTL" default:"30m"`
}

type APIConfig struct {
	Port int `envconfig:"API_PORT" default:"8080"`
}

func (c APIConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}

// LoadClickHouse reads only the ClickHouse section. The optimize CLI uses it
// so a run against the candle store does not demand the daemon's full
// environment.
func LoadClickHouse() (ClickHouseConfig, error) {
	_ = godotenv.Load()

	var cfg ClickHouseConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to process clickhouse config")
	}

	return cfg, nil
}
