// Command portal runs the placement portal API.
//
// Startup order: configuration, logging, entity store (PostgreSQL, or the
// in-memory store when DATABASE_URL is empty), Redis read cache, event bus,
// command and query handlers, HTTP server. SIGINT or SIGTERM drains the
// HTTP server first, then the event bus, then closes the connections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/placement-hub/placement-portal/config"
	"github.com/placement-hub/placement-portal/internal/application/command"
	"github.com/placement-hub/placement-portal/internal/application/eventhandler"
	"github.com/placement-hub/placement-portal/internal/application/query"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/internal/infrastructure/messaging"
	"github.com/placement-hub/placement-portal/internal/infrastructure/metrics"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/memory"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/postgres"
	"github.com/placement-hub/placement-portal/internal/infrastructure/persistence/redis"
	httpapi "github.com/placement-hub/placement-portal/internal/interface/http"
	"github.com/placement-hub/placement-portal/internal/interface/http/handlers"
	"github.com/placement-hub/placement-portal/pkg/circuitbreaker"
	"github.com/placement-hub/placement-portal/pkg/logger"
	"github.com/placement-hub/placement-portal/pkg/retry"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting placement portal",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	clock := timeutil.NewCampusClock(cfg.App.Location)
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ENTITY STORE
	// ─────────────────────────────────────────────────────────────────────────
	uow, closeStore, err := openStore(ctx, cfg, clock, log, health)
	if err != nil {
		return err
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS READ CACHE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	oppCache, closeCache := openCache(ctx, cfg, log, health)
	defer closeCache()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.AsyncMode = cfg.Events.Async
	busConfig.WorkerPoolSize = cfg.Events.Workers
	busConfig.Logger = log
	if cfg.Observability.MetricsEnabled {
		busConfig.Observer = metrics.EventObserver{}
	}
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus")
		_ = bus.Close()
	}()

	var subscribers []eventhandler.Handler
	if cfg.Observability.MetricsEnabled {
		subscribers = append(subscribers, eventhandler.NewOnLifecycleMetricsHandler(metrics.Recorder{}))
	}

	var readCache query.OpportunityCache
	if oppCache != nil {
		readCache = oppCache
		subscribers = append(subscribers, eventhandler.NewOnOpportunityChangedHandler(oppCache, log, 0))
	}
	if err := eventhandler.Register(bus, subscribers...); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	deps := httpapi.Dependencies{
		CreateApplication: command.NewCreateApplicationHandler(uow, clock, bus, log),
		ScheduleInterview: command.NewScheduleInterviewHandler(uow, clock, bus, log),
		ChangeStatus:      command.NewChangeApplicationStatusHandler(uow, clock, bus, log),
		Withdraw:          command.NewWithdrawApplicationHandler(uow, clock, bus, log),
		Delete:            command.NewDeleteHandler(uow, clock, bus, log),
		RecordResult:      command.NewRecordInterviewResultHandler(uow, clock, bus, log),
		Catalog:           command.NewCatalogHandler(uow, clock, bus, log),
		Opportunities:     query.NewOpportunityHandler(uow, readCache, log),
		History:           query.NewHistoryHandler(uow),
		Logger:            log,
		HealthChecker:     health,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpConfig := httpapi.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.AdminKeyHashes = cfg.HTTP.AdminKeyHashes
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

	if len(httpConfig.AdminKeyHashes) == 0 {
		log.Warn("no admin key hashes configured, admin endpoints are open")
	}

	server := httpapi.NewServer(httpConfig, deps)
	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	bus.Wait()

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

// openStore selects PostgreSQL when a database URL is configured and the
// in-memory store otherwise.
func openStore(
	ctx context.Context,
	cfg *config.Config,
	clock *timeutil.CampusClock,
	log *logger.Logger,
	health *handlers.CompositeHealthChecker,
) (store.UnitOfWork, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL is empty, using the in-memory store")
		return memory.NewStore(memory.WithClock(clock.Now)), func() {}, nil
	}

	log.Info("connecting to database")
	pool := postgres.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	var conn *postgres.Connection
	err := retry.DatabaseRetrier(retry.WithLogger(log, "postgres_connect")).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, pool)
		if errors.Is(err, postgres.ErrInvalidURL) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	health.AddCheck("database", handlers.NewPingCheck(conn))

	closeFn := func() {
		log.Info("closing database connection")
		conn.Close()
	}
	return postgres.NewStore(conn, postgres.WithClock(clock.Now)), closeFn, nil
}

// openCache connects the opportunity read cache. Any failure leaves the
// portal running against the entity store alone.
func openCache(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	health *handlers.CompositeHealthChecker,
) (*redis.OpportunityCache, func()) {
	noop := func() {}
	if cfg.Redis.Disabled {
		log.Info("redis disabled, opportunity reads go to the store")
		return nil, noop
	}

	redisCfg, err := redisConfig(cfg.Redis)
	if err != nil {
		log.Warn("invalid redis configuration, caching disabled", logger.Err(err))
		return nil, noop
	}

	var cache *redis.Cache
	err = retry.RedisRetrier(retry.WithLogger(log, "redis_connect")).Do(ctx, func(ctx context.Context) error {
		c, err := redis.NewCache(redisCfg)
		if err != nil {
			return err
		}
		cache = c
		return nil
	})
	if err != nil {
		log.Warn("failed to connect to redis, caching disabled", logger.Err(err))
		return nil, noop
	}

	health.AddOptionalCheck("cache", handlers.NewPingCheck(cache))
	log.Info("redis connection established", logger.String("addr", redisCfg.Addr()))

	breaker := circuitbreaker.CacheBreaker(redis.IsOutage, func(name string, from, to circuitbreaker.State) {
		log.Warn("cache circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
		if cfg.Observability.MetricsEnabled {
			metrics.SetBreakerState(name, int(to))
		}
	})

	oppCache := redis.NewOpportunityCache(cache, cfg.Redis.OpportunityTTL, redis.WithBreaker(breaker))
	return oppCache, func() {
		log.Info("closing redis connection")
		_ = cache.Close()
	}
}

func redisConfig(c config.RedisConfig) (redis.Config, error) {
	rc := redis.DefaultConfig()
	if c.URL != "" {
		parsed, err := redis.ConfigFromURL(c.URL)
		if err != nil {
			return redis.Config{}, err
		}
		rc = parsed
	} else {
		rc.Host = c.Host
		rc.Port = c.Port
		rc.Password = c.Password
		rc.DB = c.DB
	}

	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		rc.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	if rc.Host == "" {
		return redis.Config{}, errors.New("redis host is empty")
	}
	return rc, nil
}
