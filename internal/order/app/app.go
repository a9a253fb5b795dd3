package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmicro/shopmicro/internal/order/client"
	"github.com/shopmicro/shopmicro/internal/order/config"
	"github.com/shopmicro/shopmicro/internal/order/event"
	handler "github.com/shopmicro/shopmicro/internal/order/handler/http"
	"github.com/shopmicro/shopmicro/internal/order/migrations"
	postgresrepo "github.com/shopmicro/shopmicro/internal/order/repository/postgres"
	"github.com/shopmicro/shopmicro/internal/order/service"
	"github.com/shopmicro/shopmicro/pkg/database"
	"github.com/shopmicro/shopmicro/pkg/health"
	"github.com/shopmicro/shopmicro/pkg/httpclient"
	pkgkafka "github.com/shopmicro/shopmicro/pkg/kafka"
	"github.com/shopmicro/shopmicro/pkg/tracing"
)

// productBreakerName identifies the product catalog dependency in the
// circuit breaker registry, metrics, and logs.
const productBreakerName = "product-catalog"

// App wires together all dependencies and runs the order service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	breakers        *httpclient.Registry
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tracing.
	tracingCfg := tracing.DefaultConfig("order")
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL pool with startup retry.
	pgCfg := &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}
	pool, err := database.NewPostgresPoolWithLogger(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	database.RegisterPoolMetrics(pool, "order")

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Retrying HTTP client, gated by a per-dependency circuit breaker. The
	// breaker wraps the whole retry sequence: one exhausted call counts once.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		MaxRetries:      cfg.HTTPMaxRetries,
		RetryWaitMin:    time.Duration(cfg.HTTPRetryWaitMin) * time.Millisecond,
		RetryWaitMax:    time.Duration(cfg.HTTPRetryWaitMax) * time.Millisecond,
		BackoffMultiple: cfg.HTTPBackoffFactor,
		Jitter:          cfg.HTTPJitter,
		MaxConnsPerHost: 100,
	})

	breakers := httpclient.NewRegistry(baseClient, func(name string) httpclient.CircuitBreakerConfig {
		return httpclient.CircuitBreakerConfig{
			Name:         name,
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBIntervalSec) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeoutSec) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
	}, logger)

	cbClient := breakers.Get(productBreakerName)
	logger.Info("circuit breaker initialized",
		slog.String("name", productBreakerName),
		slog.Uint64("max_requests", uint64(cfg.CBMaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeoutSec),
		slog.Uint64("min_requests", uint64(cfg.CBMinRequests)),
	)

	// Build the dependency graph.
	catalog := client.NewCatalogClient(cbClient, cfg.ProductServiceURL)
	resolver := client.NewResilientProductClient(catalog, logger)
	repo := postgresrepo.NewOrderRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	orderService := service.NewOrderService(
		repo,
		resolver,
		eventProducer,
		logger,
		time.Duration(cfg.ResolveTimeoutSec)*time.Second,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(orderService, healthHandler, breakers, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		producer:        producer,
		httpServer:      httpServer,
		breakers:        breakers,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
