package testsupport

import "testing"

func TestLoadPostgresConfig(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "user")
	t.Setenv("POSTGRES_PASSWORD", "pass")
	t.Setenv("POSTGRES_DB", "db")
	t.Setenv("POSTGRES_PORT", "5543")

	cfg := LoadPostgresConfig(t)

	if cfg.Host != "localhost" || cfg.Port != 5543 || cfg.Database != "db" {
		t.Fatalf("unexpected postgres config %+v", cfg)
	}
	if cfg.SSLMode != "disable" {
		t.Fatalf("expected default ssl mode, got %q", cfg.SSLMode)
	}
}

func TestLoadClickHouseConfig(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "click")
	t.Setenv("CLICKHOUSE_DB", "analytics")
	t.Setenv("CLICKHOUSE_PORT", "8123")

	cfg := LoadClickHouseConfig(t)

	if cfg.Host != "click" || cfg.Port != 8123 || cfg.Database != "analytics" {
		t.Fatalf("unexpected clickhouse config %+v", cfg)
	}
	if cfg.User != "default" {
		t.Fatalf("expected default user, got %q", cfg.User)
	}
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadRedisConfig(t)

	if cfg.Host != "redis" || cfg.Port != 6380 || cfg.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg)
	}
}

func TestEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "not-a-port")

	cfg := LoadRedisConfig(t)
	if cfg.Port != 6379 {
		t.Fatalf("expected fallback port, got %d", cfg.Port)
	}
}
