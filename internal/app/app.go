package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/AlwanWZ/shophub/internal/catalog"
	"github.com/AlwanWZ/shophub/internal/config"
	"github.com/AlwanWZ/shophub/internal/event"
	handler "github.com/AlwanWZ/shophub/internal/handler/http"
	"github.com/AlwanWZ/shophub/internal/repository"
	pgrepo "github.com/AlwanWZ/shophub/internal/repository/postgres"
	redisrepo "github.com/AlwanWZ/shophub/internal/repository/redis"
	"github.com/AlwanWZ/shophub/internal/session"
	"github.com/AlwanWZ/shophub/internal/students"
	"github.com/AlwanWZ/shophub/migrations"
	"github.com/AlwanWZ/shophub/pkg/database"
	"github.com/AlwanWZ/shophub/pkg/health"
	"github.com/AlwanWZ/shophub/pkg/httpclient"
	pkgkafka "github.com/AlwanWZ/shophub/pkg/kafka"
	"github.com/AlwanWZ/shophub/pkg/middleware"
	"github.com/AlwanWZ/shophub/pkg/tracing"
)

const (
	serviceName        = "shophub"
	slowQueryThreshold = 200 * time.Millisecond
	rateLimiterTTL     = 5 * time.Minute
)

// App wires together all dependencies and runs the shophub server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	sessions       *session.Manager
	limiter        *middleware.RateLimiter
	shutdownTracer tracing.ShutdownFunc
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRate:   cfg.OTelSampleRate,
		Enabled:      cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	healthHandler := health.NewHandler()

	store, err := a.openSnapshotStore(ctx)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	healthHandler.Register("snapshot_store", store.Ping)

	// Upstream clients. The records proxy must not retry.
	catalogHTTP := httpclient.DefaultConfig()
	catalogHTTP.Timeout = cfg.UpstreamTimeout
	catalogHTTP.Header = http.Header{"Accept": {"application/json"}}
	catalogClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(catalogHTTP),
		httpclient.DefaultCircuitBreakerConfig("product-catalog"),
		logger,
	)

	studentsHTTP := catalogHTTP
	studentsHTTP.MaxRetries = 0
	studentsClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(studentsHTTP),
		httpclient.DefaultCircuitBreakerConfig("student-records"),
		logger,
	)

	source := catalog.NewSource(catalogClient, cfg.ProductsUpstreamURL, logger,
		catalog.WithStockCeiling(cfg.StockCeiling),
	)

	opts := []session.Option{session.WithIdleTTL(cfg.SessionIdleTTL)}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		opts = append(opts, session.WithPublisher(event.NewProducer(a.producer, logger)))
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	a.sessions = session.NewManager(source, store, logger, opts...)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimiterTTL, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:     a.sessions,
		Students:     students.NewClient(studentsClient, cfg.StudentsUpstreamURL, logger),
		Health:       healthHandler,
		ProxyLimiter: a.limiter,
		CORS:         corsCfg,
		Logger:       logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// openSnapshotStore connects the configured snapshot backend.
func (a *App) openSnapshotStore(ctx context.Context) (repository.SnapshotStore, error) {
	switch a.cfg.SnapshotBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		database.SetSlowQueryLogging(slowQueryThreshold, a.logger)

		a.logger.Info("using postgres snapshot store",
			slog.String("host", a.cfg.PostgresHost),
			slog.String("database", a.cfg.PostgresDB),
		)
		return pgrepo.NewSnapshotStore(pool), nil

	default:
		rdb, err := database.NewRedisClient(ctx, a.cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb

		a.logger.Info("using redis snapshot store",
			slog.String("addr", a.cfg.Redis().Addr()),
			slog.Int("db", a.cfg.RedisDB),
			slog.Duration("ttl", a.cfg.CartTTLDuration()),
		)
		return redisrepo.NewSnapshotStore(rdb, a.cfg.CartTTLDuration()), nil
	}
}

// Run starts the HTTP server and background sweepers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.sessions.Run(ctx)
	go a.limiter.Run(ctx)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeResources()

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeResources() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
