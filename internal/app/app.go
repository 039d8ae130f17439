package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shoptrust/reviews/internal/cache"
	"github.com/shoptrust/reviews/internal/client"
	"github.com/shoptrust/reviews/internal/config"
	"github.com/shoptrust/reviews/internal/event"
	handler "github.com/shoptrust/reviews/internal/handler/http"
	"github.com/shoptrust/reviews/internal/repository/postgres"
	"github.com/shoptrust/reviews/internal/service"
	"github.com/shoptrust/reviews/migrations"
	"github.com/shoptrust/reviews/pkg/database"
	"github.com/shoptrust/reviews/pkg/health"
	"github.com/shoptrust/reviews/pkg/httpclient"
	pkgkafka "github.com/shoptrust/reviews/pkg/kafka"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg           *config.Config
	logger        *slog.Logger
	pool          *pgxpool.Pool
	redisClient   *redis.Client
	producer      *pkgkafka.Producer
	reviewService *service.ReviewService
	httpServer    *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	database.RegisterPoolMetrics(pool, "reviews")

	// Redis for the trust summary cache.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Downstream service clients, each behind its own circuit breaker.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	merchantClient := client.NewMerchantClient(
		cfg.MerchantServiceURL,
		httpclient.NewCircuitBreakerClient(httpClient, httpclient.DefaultCircuitBreakerConfig("merchant-service"), logger),
	)
	orderClient := client.NewOrderClient(
		cfg.OrderServiceURL,
		httpclient.NewCircuitBreakerClient(httpClient, httpclient.DefaultCircuitBreakerConfig("order-service"), logger),
	)

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	summaryRepo := postgres.NewSummaryRepository(pool)
	summaryCache := cache.NewSummaryCache(redisClient, cfg.CacheTTL)
	eventProducer := event.NewProducer(producer, logger)

	reviewService := service.NewReviewService(
		reviewRepo, summaryRepo, summaryCache, merchantClient, orderClient, eventProducer,
		service.Config{
			StaleAfter: cfg.SummaryStaleAfter,
			StaleBatch: cfg.SummaryStaleBatch,
		},
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(reviewService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		redisClient:   redisClient,
		producer:      producer,
		reviewService: reviewService,
		httpServer:    httpServer,
	}, nil
}

// Run starts the HTTP server and the background summary refresher, blocking
// until the context is canceled.
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

	go a.runSummaryRefresher(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runSummaryRefresher periodically recomputes trust summaries whose
// computed_at has gone stale, so scores decay as reviews age out of the
// aggregation window even when a merchant receives no new reviews.
func (a *App) runSummaryRefresher(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SummaryRefreshInterval)
	defer ticker.Stop()

	a.logger.Info("summary refresher started",
		slog.Duration("interval", a.cfg.SummaryRefreshInterval),
		slog.Duration("stale_after", a.cfg.SummaryStaleAfter),
	)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("summary refresher stopped")
			return
		case <-ticker.C:
			if err := a.reviewService.RefreshStaleSummaries(ctx); err != nil {
				a.logger.Error("summary refresh cycle failed", slog.String("error", err.Error()))
			}
		}
	}
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

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
