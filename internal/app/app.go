package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/notify/httpsender"
	"github.com/utafrali/storefront/internal/notify/kafkasender"
	notifymock "github.com/utafrali/storefront/internal/notify/mock"
	pgrepo "github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	pool        *pgxpool.Pool
	rdb         *redis.Client
	producer    *pkgkafka.Producer
	consumer    *pkgkafka.Consumer
	dispatcher  *service.Dispatcher
	trending    *service.TrendingService
	rateLimiter *middleware.RateLimiter
	httpServer  *http.Server
	shutdownOTL func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownOTL, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Initialize PostgreSQL.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	database.SetSlowQueryLogging(cfg.SlowQuery, logger)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Initialize Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Kafka is optional. Without brokers, domain events are not published.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	products := pgrepo.NewProductRepository(pool)
	ratings := pgrepo.NewRatingRepository(pool)
	orders := pgrepo.NewOrderRepository(pool)
	favorites := pgrepo.NewFavoriteRepository(pool)
	cartRepo := redisrepo.NewCartRepository(rdb, cfg.CartTTL())
	trendingCache := redisrepo.NewTrendingCache(rdb)
	eventProducer := event.NewProducer(publisher, logger)

	sender, err := newSender(cfg, producer, logger)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, err
	}
	logger.Info("notification sender selected", slog.String("sender", sender.Name()))

	dispatcher := service.NewDispatcher(orders, products, notify.Instrument(sender), cfg.NotifyTimeout, logger)
	catalogService := service.NewCatalogService(products, logger)
	cartService := service.NewCartService(cartRepo, products, logger)
	orderService := service.NewOrderService(orders, products, cartService, dispatcher, eventProducer, logger)
	favoriteService := service.NewFavoriteService(favorites, logger)
	ratingService := service.NewRatingService(ratings, products, eventProducer, logger, cfg.TopRatedLimit)
	trendingService := service.NewTrendingService(orders, products, trendingCache, service.TrendingConfig{
		MinQuantity:     cfg.TrendingMinQuantity,
		Limit:           cfg.TrendingLimit,
		CacheTTL:        cfg.TrendingCacheTTL,
		RefreshInterval: cfg.TrendingRefreshInterval,
	}, logger)

	var consumer *pkgkafka.Consumer
	if producer != nil {
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaConsumerGroup,
			Topics:  event.OrderTopics(),
		}, trendingService.HandleOrderEvent, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler(2 * time.Second)
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if producer != nil {
		healthHandler.Register("kafka", producer.Ping)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Catalog:   catalogService,
		Cart:      cartService,
		Orders:    orderService,
		Ratings:   ratingService,
		Trending:  trendingService,
		Favorites: favoriteService,
	}, healthHandler, logger, handler.RouterConfig{
		JWTSecret:     cfg.JWTSecret,
		CORS:          cors,
		RateLimiter:   rateLimiter,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
		RankingMaxAge: 60,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		rdb:         rdb,
		producer:    producer,
		consumer:    consumer,
		dispatcher:  dispatcher,
		trending:    trendingService,
		rateLimiter: rateLimiter,
		httpServer:  httpServer,
		shutdownOTL: shutdownOTL,
	}, nil
}

// newSender picks the notification channel named by NOTIFY_CHANNEL.
func newSender(cfg *config.Config, producer *pkgkafka.Producer, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.NotifyChannel {
	case config.NotifyChannelLog:
		return notifymock.NewLogSender(logger), nil
	case config.NotifyChannelHTTP:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("notification-service"),
			logger,
		)
		return httpsender.New(client, cfg.NotificationServiceURL), nil
	case config.NotifyChannelKafka:
		if producer == nil {
			return nil, errors.New("kafka notification channel requires brokers")
		}
		return kafkasender.New(producer, serviceName), nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.NotifyChannel)
	}
}

// Run starts the HTTP server and background workers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		a.trending.RunRefresher(workerCtx)
	}()

	if a.consumer != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := a.consumer.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("order event consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopWorkers()
	workers.Wait()

	if err := a.Shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// In-flight order confirmations finish before their stores close.
	if err := a.dispatcher.Wait(shutdownCtx); err != nil {
		a.logger.Warn("pending notifications abandoned", slog.String("error", err.Error()))
	}

	a.rateLimiter.Close()

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()

	if err := a.shutdownOTL(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
