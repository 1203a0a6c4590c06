package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kairos/internal/api/health"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// ServerConfig describes the HTTP listener. Addr comes from APIConfig.Addr().
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Server is the operational HTTP surface: probes, worker health and
// Prometheus metrics. There is no request-driven API; runs are started by
// workers and Kafka commands.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer wires the routes and configures timeouts.
func NewServer(cfg ServerConfig, healthHandler *health.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      newRouter(cfg, healthHandler),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

func newRouter(cfg ServerConfig, healthHandler *health.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Kubernetes probes plus per-worker run counters
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)
	mux.HandleFunc("/workers", healthHandler.HandleWorkers)

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":%q,"version":%q,"status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	return mux
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}
