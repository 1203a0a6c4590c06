package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"kairos/internal/workers"
	"kairos/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Handler serves the liveness, readiness, health and workers endpoints.
// Probes run against the raw store handles, not the adapters.
type Handler struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	clickhouse  driver.Conn
	redis       *redis.Client
	scheduler   *workers.Scheduler
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. scheduler may be nil; the workers
// endpoint then reports an empty set.
func New(
	log *logger.Logger,
	postgres *sqlx.DB,
	clickhouse driver.Conn,
	redis *redis.Client,
	scheduler *workers.Scheduler,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:         log,
		postgres:    postgres,
		clickhouse:  clickhouse,
		redis:       redis,
		scheduler:   scheduler,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus is the envelope returned by the readiness and health endpoints.
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded" or "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the probe result for a single store.
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness answers the Kubernetes liveness probe without touching the
// stores.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness answers the Kubernetes readiness probe. Readiness requires
// all three stores, so any failing probe returns 503.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.newStatus(checks)
	statusCode := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Readiness check failed", "checks", checks)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth reports detailed status. A partial outage is "degraded" and
// keeps the 200; only all stores down flips to 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.newStatus(checks)
	statusCode := http.StatusOK
	switch {
	case healthy == 0:
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	case healthy < total:
		status.Status = "degraded"
	}

	writeJSON(w, statusCode, status)
}

// HandleWorkers reports per-worker health from the scheduler
func (h *Handler) HandleWorkers(w http.ResponseWriter, r *http.Request) {
	health := make(map[string]workers.WorkerHealth)
	if h.scheduler != nil {
		health = h.scheduler.WorkersHealth()
	}
	writeJSON(w, http.StatusOK, health)
}

func (h *Handler) newStatus(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

// runChecks probes every store and counts the healthy ones.
func (h *Handler) runChecks(ctx context.Context) (map[string]ComponentHealth, int, int) {
	probes := []struct {
		name string
		ping func(context.Context) error
	}{
		{"postgres", h.postgres.PingContext},
		{"clickhouse", h.clickhouse.Ping},
		{"redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }},
	}

	checks := make(map[string]ComponentHealth, len(probes))
	healthy := 0
	for _, p := range probes {
		result := h.probe(ctx, p.name, p.ping)
		checks[p.name] = result
		if result.Status == "healthy" {
			healthy++
		}
	}

	return checks, healthy, len(probes)
}

// probe times a single ping and folds the outcome into a ComponentHealth.
func (h *Handler) probe(ctx context.Context, name string, ping func(context.Context) error) ComponentHealth {
	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Error("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
