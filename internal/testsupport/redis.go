package testsupport

import (
	"context"
	"testing"

	"kairos/internal/adapters/redis"
)

// NewTestRedis connects the redis adapter to the test instance, flushing the
// database before the test and again on cleanup. Skips when the integration
// environment is absent.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client, err := redis.NewClient(LoadRedisConfig(t))
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	if err := client.Client().FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis before test: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Client().FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
