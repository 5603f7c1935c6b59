package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/LogiScore/backend-sub000/internal/cache"
	"github.com/LogiScore/backend-sub000/internal/config"
	"github.com/LogiScore/backend-sub000/internal/event"
	handler "github.com/LogiScore/backend-sub000/internal/handler/http"
	"github.com/LogiScore/backend-sub000/internal/jobs"
	"github.com/LogiScore/backend-sub000/internal/repository/postgres"
	mocksender "github.com/LogiScore/backend-sub000/internal/sender/mock"
	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/migrations"
	"github.com/LogiScore/backend-sub000/pkg/database"
	"github.com/LogiScore/backend-sub000/pkg/health"
	pkgkafka "github.com/LogiScore/backend-sub000/pkg/kafka"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	consumers  []*pkgkafka.Consumer
	jobs       *jobs.Runner
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL connection pool and schema.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	database.RegisterPoolMetrics(pool, "review-service")

	// Score cache: Redis when configured, in-memory otherwise.
	var redisClient *redis.Client
	var scoreCache cache.ScoreCache
	if cfg.RedisHost != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		scoreCache = cache.NewRedisScoreCache(redisClient, cfg.ScoreCacheTTL)
		logger.Info("score cache backed by redis",
			slog.String("host", cfg.RedisHost),
			slog.Duration("ttl", cfg.ScoreCacheTTL),
		)
	} else {
		scoreCache = cache.NewMemoryScoreCache(cfg.ScoreCacheTTL, nil)
		logger.Info("score cache is in-memory", slog.Duration("ttl", cfg.ScoreCacheTTL))
	}

	// Kafka producer. With no brokers configured, events are dropped and
	// consumers are not started.
	var kafkaProducer *pkgkafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka disabled, events will not be published")
	}

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	thresholdRepo := postgres.NewThresholdRepository(pool)

	emailSender := mocksender.NewSender(logger)
	eventProducer := event.NewProducer(kafkaProducer, logger)

	scheduler := service.NewNotificationScheduler(subscriptionRepo, notificationRepo, reviewRepo, emailSender, eventProducer, logger)
	monitor := service.NewThresholdMonitor(reviewRepo, thresholdRepo, scoreCache, emailSender, eventProducer, logger)
	lifecycle := service.NewLifecycleService(subscriptionRepo, thresholdRepo, emailSender, logger)
	reviewService := service.NewReviewService(reviewRepo, scheduler, monitor, scoreCache, eventProducer, logger)

	// Kafka event consumers for billing entitlement changes.
	var consumers []*pkgkafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		consumerHandler := event.NewConsumerHandler(lifecycle, logger)
		consumers = event.NewConsumers(cfg.KafkaBrokers, consumerHandler, logger)
	}

	// Background jobs.
	runner := jobs.NewRunner(jobs.Config{
		DailyDigestInterval:   cfg.DailyDigestInterval,
		WeeklyDigestInterval:  cfg.WeeklyDigestInterval,
		ThresholdSweepEvery:   cfg.ThresholdSweepEvery,
		MaintenanceEvery:      cfg.MaintenanceEvery,
		NotificationRetention: cfg.NotificationRetention,
	}, scheduler, monitor, lifecycle, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(reviewService, lifecycle, monitor, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   kafkaProducer,
		consumers:  consumers,
		jobs:       runner,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server, Kafka consumers, and background jobs, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, consumer := range a.consumers {
		c := consumer
		go func() {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
			}
		}()
	}

	go a.jobs.Start(ctx)

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

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
