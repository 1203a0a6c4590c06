package bootstrap

import (
	chclient "kairos/internal/adapters/clickhouse"
	"kairos/internal/adapters/config"
	errnoop "kairos/internal/adapters/errors/noop"
	"kairos/internal/adapters/errors/sentry"
	"kairos/internal/adapters/kafka"
	pgclient "kairos/internal/adapters/postgres"
	redisclient "kairos/internal/adapters/redis"
	"kairos/internal/api"
	"kairos/internal/api/health"
	"kairos/internal/consumers"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/events"
	"kairos/internal/metrics"
	chrepo "kairos/internal/repository/clickhouse"
	pgrepo "kairos/internal/repository/postgres"
	"kairos/internal/scoring"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/internal/workers"
	"kairos/internal/workers/regimes"
	"kairos/pkg/errors"
	"kairos/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration, then brings up logging and error
// tracking so every later phase can fail loudly.
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s (%s)", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// mustConnect dials one store, dying on failure. Boot order stops at the
// first dead dependency instead of limping into a half-connected state.
func mustConnect[T any](log *logger.Logger, name string, dial func() (T, error)) T {
	log.Infof("Connecting to %s...", name)
	client, err := dial()
	if err != nil {
		log.Fatalf("failed to connect %s: %v", name, err)
	}
	log.Infof("✓ %s connected", name)
	return client
}

// MustInitInfrastructure dials the data stores: Postgres for run records,
// ClickHouse for candles and trial results, Redis for window cache and locks.
func (c *Container) MustInitInfrastructure() {
	c.PG = mustConnect(c.Log, "PostgreSQL", func() (*pgclient.Client, error) {
		return pgclient.NewClient(c.Config.Postgres)
	})
	c.CH = mustConnect(c.Log, "ClickHouse", func() (*chclient.Client, error) {
		return chclient.NewClient(c.Config.ClickHouse)
	})
	c.Redis = mustConnect(c.Log, "Redis", func() (*redisclient.Client, error) {
		return redisclient.NewClient(c.Config.Redis)
	})
}

// ========================================
// Phase 3: Domain Layer - Repositories
// ========================================

// MustInitRepositories initializes all domain repositories
func (c *Container) MustInitRepositories() {
	c.Repos.MarketData = chrepo.NewMarketDataRepository(c.CH.Conn())
	c.Repos.Regime = chrepo.NewRegimePeriodRepository(c.CH.Conn())
	c.Repos.Results = chrepo.NewResultRepository(c.CH.Conn())
	c.Repos.Runs = pgrepo.NewRunRepository(c.PG.DB())

	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes external adapters (Kafka)
func (c *Container) MustInitAdapters() {
	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.OptimizationConsumer = provideKafkaConsumer(c.Config, kafka.TopicOptimizationRequested, c.Log)
	c.Adapters.Events = events.NewPublisher(c.Adapters.KafkaProducer)

	c.Log.Info("✓ Adapters initialized")
}

// ========================================
// Phase 5: Domain Services
// ========================================

// MustInitServices initializes domain services
func (c *Container) MustInitServices() {
	// Market data service with Redis-backed window cache
	cache := marketdatasvc.NewSeriesCache(marketdatasvc.CacheConfig{
		Enabled: c.Config.Data.CacheTTL > 0,
		TTL:     c.Config.Data.CacheTTL,
	}, c.Redis)
	c.Services.MarketData = marketdatasvc.NewService(c.Repos.MarketData, cache)

	// Search space and regime config (JSON mode)
	space, regimeCfg := provideSearchSpace(c.Config, c.Log)

	svc, err := optimizationsvc.NewService(space, regimeCfg, scoring.Config{}, optimizationsvc.Deps{
		Events:  c.Adapters.Events,
		Runs:    c.Repos.Runs,
		Results: c.Repos.Results,
		Regimes: c.Repos.Regime,
	})
	if err != nil {
		c.Log.Fatalf("failed to create optimization service: %v", err)
	}
	c.Services.Optimization = svc

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground initializes background workers and consumers
func (c *Container) MustInitBackground() {
	mode := optimization.Mode(c.Config.Optimizer.Mode)
	if mode != "" && !mode.Valid() {
		c.Log.Fatalf("invalid OPTIMIZER_MODE %q (want simple, legacy, or json)", c.Config.Optimizer.Mode)
	}

	c.Background.WorkerScheduler = workers.NewScheduler()

	optimizeWorker := regimes.NewOptimizeWorker(
		c.Services.MarketData,
		c.Services.Optimization,
		c.Redis,
		optimizationsvc.Request{
			Symbol:    c.Config.Data.Symbol,
			Timeframe: c.Config.Data.Timeframe,
			Trials:    c.Config.Optimizer.Trials,
			Method:    c.Config.Optimizer.Method,
			Pruner:    c.Config.Optimizer.Pruner,
			Seed:      c.Config.Optimizer.Seed,
			Mode:      mode,
			TopN:      c.Config.Optimizer.TopN,
		},
		c.Config.Data.Exchange,
		c.Config.Data.LookbackBars,
		c.Config.Workers.LockTTL,
		c.Config.Optimizer.ExportPath,
		c.Config.Workers.OptimizerInterval,
		true,
	)
	c.Background.WorkerScheduler.RegisterWorker(optimizeWorker)

	detector := regimes.NewRegimeDetector(
		c.Services.MarketData,
		c.Services.Optimization,
		c.Repos.Runs,
		c.Repos.Regime,
		c.Adapters.Events,
		c.Config.Data.Exchange,
		c.Config.Data.Symbol,
		c.Config.Data.Timeframe,
		c.Config.Data.LookbackBars,
		c.Config.Workers.RegimeDetectorInterval,
		true,
	)
	c.Background.WorkerScheduler.RegisterWorker(detector)

	c.Background.RequestSvc = consumers.NewOptimizationRequestConsumer(
		c.Adapters.OptimizationConsumer,
		c.Services.MarketData,
		c.Services.Optimization,
		c.Redis,
		c.Config.Data.Exchange,
		c.Config.Data.LookbackBars,
		c.Config.Workers.LockTTL,
	)

	c.Log.Info("✓ Background processing initialized")
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication initializes the application layer (HTTP, metrics)
func (c *Container) MustInitApplication() {
	// Health handler
	c.Application.HealthHandler = health.New(
		c.Log,
		c.PG.DB(),
		c.CH.Conn(),
		c.Redis.Client(),
		c.Background.WorkerScheduler,
		c.Config.App.Name,
		c.Config.App.Version,
	)

	// HTTP server
	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Addr:        c.Config.API.Addr(),
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}, c.Application.HealthHandler, c.Log)

	// Initialize metrics
	metrics.Init()
	runCollector := metrics.NewRunCollector(c.Log, c.PG.DB(), c.CH.Conn())
	metrics.RegisterRunCollector(runCollector)
	c.Log.Info("✓ Metrics initialized")

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

// Brokers are required by config.Load, so neither provider needs a fallback.
func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Async:   false,
	})
	log.Info("✓ Kafka producer initialized")
	return producer
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   topic,
	})
	log.Infof("✓ Kafka consumer initialized (%s)", topic)
	return consumer
}

// provideSearchSpace loads the configured parameter space and, when a regime
// config path is set, the v2 JSON regime config that switches resolution to
// JSON mode. Both are optional; missing files are fatal, absent settings are
// defaults.
func provideSearchSpace(cfg *config.Config, log *logger.Logger) (*optimization.ParameterSpace, *regime.Config) {
	space := &optimization.ParameterSpace{}
	if cfg.Optimizer.SpacePath != "" {
		loaded, err := optimization.LoadSpace(cfg.Optimizer.SpacePath)
		if err != nil {
			log.Fatalf("failed to load parameter space: %v", err)
		}
		space = loaded
		log.Infow("✓ Parameter space loaded",
			"path", cfg.Optimizer.SpacePath,
			"ranges", len(space.Configured()),
		)
	}

	var regimeCfg *regime.Config
	if cfg.Optimizer.RegimeConfigPath != "" {
		loaded, err := regime.LoadConfig(cfg.Optimizer.RegimeConfigPath)
		if err != nil {
			log.Fatalf("failed to load regime config: %v", err)
		}
		regimeCfg = loaded
		log.Infow("✓ Regime config loaded",
			"path", cfg.Optimizer.RegimeConfigPath,
			"indicators", len(regimeCfg.Indicators),
			"regimes", len(regimeCfg.Regimes),
		)
	}

	return space, regimeCfg
}
