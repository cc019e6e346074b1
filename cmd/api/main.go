package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/di"
	"github.com/maisonmarche/storefront-api/internal/events"
	"github.com/maisonmarche/storefront-api/internal/handlers"
	"github.com/maisonmarche/storefront-api/internal/notifications"
	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/platform/broker"
	"github.com/maisonmarche/storefront-api/internal/platform/config"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/platform/idempotency"
	"github.com/maisonmarche/storefront-api/internal/platform/observability"
	"github.com/maisonmarche/storefront-api/internal/repositories"
	"github.com/maisonmarche/storefront-api/internal/repositories/mysql"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := database.NewProvider(cfg.Database)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(dependencyChecks(provider, redisClient))
	if err != nil {
		logger.Fatal("failed to build health repository", zap.Error(err))
	}

	registry, err := mysql.NewRegistry(provider, healthRepo)
	if err != nil {
		logger.Fatal("failed to build repository registry", zap.Error(err))
	}
	if err := registry.Migrate(ctx); err != nil {
		logger.Fatal("failed to run schema migration", zap.Error(err))
	}

	var orderEvents services.OrderEventPublisher
	if cfg.Broker.URL != "" {
		mq, err := broker.Connect(cfg.Broker, logger)
		if err != nil {
			logger.Fatal("failed to connect event broker", zap.Error(err))
		}
		defer func() {
			if err := mq.Close(); err != nil {
				logger.Warn("broker close error", zap.Error(err))
			}
		}()

		orderEvents, err = events.NewOrderEventPublisher(mq)
		if err != nil {
			logger.Fatal("failed to build order event publisher", zap.Error(err))
		}

		consumer, err := notifications.NewConsumer(mq, notifications.NewLogNotifier(logger), logger)
		if err != nil {
			logger.Fatal("failed to build notification consumer", zap.Error(err))
		}
		if err := consumer.Start(); err != nil {
			logger.Fatal("failed to start notification consumer", zap.Error(err))
		}
	} else {
		logger.Warn("event broker not configured; order events will not be published")
	}

	container, err := di.NewContainer(di.ContainerDeps{
		Config:   cfg,
		Registry: registry,
		Events:   orderEvents,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	var idemStore idempotency.Store
	if redisClient != nil {
		idemStore = idempotency.NewRedisStore(redisClient)
	} else {
		memStore := idempotency.NewMemoryStore()
		go runIdempotencyCleanup(ctx, memStore, cfg.Idempotency, logger)
		idemStore = memStore
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Authn:   auth.NewAuthenticator(container.Tokens, cfg.Cart.GuestHeader),
		Auth:    handlers.NewAuthHandlers(container.Services.Users),
		Catalog: handlers.NewCatalogHandlers(container.Services.Catalog),
		Cart:    handlers.NewCartHandlers(container.Services.Carts),
		Orders:  handlers.NewOrderHandlers(container.Services.Orders, container.Services.Payments, container.Services.Returns),
		Returns: handlers.NewReturnHandlers(container.Services.Returns),
		Me:      handlers.NewMeHandlers(container.Services.Users),
		Admin: handlers.NewAdminHandlers(
			container.Services.Catalog,
			container.Services.Inventory,
			container.Services.Orders,
			container.Services.Returns,
			container.Services.System,
		),
		Webhooks: handlers.NewWebhookHandlers(handlers.WebhookHandlersDeps{
			Payments:      container.Services.Payments,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Tolerance:     cfg.Stripe.WebhookTolerance,
			EnableFake:    cfg.Stripe.APIKey == "",
		}),
		Middlewares: []func(http.Handler) http.Handler{
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		},
		OrderWriteMiddlewares: []func(http.Handler) http.Handler{
			idempotency.Middleware(idemStore, idempotency.WithTTL(cfg.Idempotency.TTL)),
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	logger.Info("http server stopped")
}

// dependencyChecks wires readiness probes for the dependencies the process was
// actually configured with.
func dependencyChecks(provider *database.Provider, redisClient *redis.Client) []repositories.DependencyCheck {
	checks := []repositories.DependencyCheck{
		{
			Name: "mysql",
			Check: func(ctx context.Context) error {
				db, err := provider.DB(ctx)
				if err != nil {
					return err
				}
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	}
	if redisClient != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}

// runIdempotencyCleanup periodically evicts expired records from the in-memory
// idempotency store. The Redis store expires keys natively and needs no sweep.
func runIdempotencyCleanup(ctx context.Context, store *idempotency.MemoryStore, cfg config.IdempotencyConfig, logger *zap.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := cfg.CleanupBatchSize
	if batch <= 0 {
		batch = 100
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.CleanupExpired(ctx, now.UTC(), batch)
			if err != nil {
				logger.Warn("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("idempotency records evicted", zap.Int("count", removed))
			}
		}
	}
}
