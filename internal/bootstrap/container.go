package bootstrap

import (
	"context"
	"sync"

	chclient "kairos/internal/adapters/clickhouse"
	"kairos/internal/adapters/config"
	"kairos/internal/adapters/kafka"
	pgclient "kairos/internal/adapters/postgres"
	redisclient "kairos/internal/adapters/redis"
	"kairos/internal/api"
	"kairos/internal/api/health"
	"kairos/internal/consumers"
	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/events"
	chrepo "kairos/internal/repository/clickhouse"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/internal/workers"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// Domain Layer - Services
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	MarketData market_data.Repository
	Results    optimization.ResultRepository
	Runs       optimization.RunRepository

	// Concrete type: regime period writes are buffered and the batch
	// writer needs Start/Stop from the container lifecycle.
	Regime *chrepo.RegimePeriodRepository
}

// Services groups all domain services
type Services struct {
	MarketData   *marketdatasvc.Service   // Candle windows (ClickHouse + Redis cache)
	Optimization *optimizationsvc.Service // Parameter search and regime scoring
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer        *kafka.Producer
	OptimizationConsumer *kafka.Consumer
	Events               *events.Publisher
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler

	// Ad-hoc optimization requests from Kafka
	RequestSvc *consumers.OptimizationRequestConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Regime period writes are buffered; the flush loop must run before the
	// first detection pass so nothing is written into a stopped buffer.
	c.Repos.Regime.Start(c.Context)
	c.Log.Info("✓ Regime period batch writer started")

	// Optimization request consumer
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.RequestSvc.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Error("Optimization request consumer failed", "error", err)
		}
	}()
	c.Log.Info("✓ Optimization request consumer started")

	// HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	// Background workers
	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	// Perform coordinated cleanup with explicit order
	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Repos.Regime,
		c.Adapters.OptimizationConsumer,
		c.Adapters.KafkaProducer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
