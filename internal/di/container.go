package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/payments"
	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/platform/config"
	"github.com/maisonmarche/storefront-api/internal/platform/requestctx"
	"github.com/maisonmarche/storefront-api/internal/repositories"
	"github.com/maisonmarche/storefront-api/internal/services"
)

// Services bundles the service-layer contracts the HTTP surface relies upon.
type Services struct {
	Audit     services.AuditLogService
	Users     services.UserService
	Catalog   services.CatalogService
	Inventory services.InventoryService
	Carts     services.CartService
	Orders    services.OrderService
	Payments  services.PaymentService
	Returns   services.ReturnService
	System    services.SystemService
}

// ContainerDeps carries the externally constructed dependencies the container
// assembles services from. Events may be nil when no broker is configured.
type ContainerDeps struct {
	Config   config.Config
	Registry repositories.Registry
	Events   services.OrderEventPublisher
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Container wires repositories, payment providers, and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Tokens       *auth.TokenIssuer
	Providers    *payments.Resolver
}

// NewContainer constructs the full service graph. Construction is eager: a
// missing dependency fails here rather than on the first request.
func NewContainer(deps ContainerDeps) (*Container, error) {
	reg := deps.Registry
	if reg == nil {
		return nil, errors.New("container: repositories registry is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logFn := serviceLogger(logger)

	tokens, err := auth.NewTokenIssuer(deps.Config.Auth.JWTSecret, deps.Config.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}
	resolver, err := buildProviderResolver(deps.Config.Stripe, logFn)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	audit, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: reg.AuditLogs(),
		Clock:      clock,
		Logger:     logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	users, err := services.NewUserService(services.UserServiceDeps{
		Users:     reg.Users(),
		Addresses: reg.Addresses(),
		Hasher:    auth.NewPasswordHasher(deps.Config.Auth.BcryptCost),
		Tokens:    tokens,
		Clock:     clock,
		Logger:    logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: reg.Catalog(),
		Audit:   audit,
		Clock:   clock,
		Logger:  logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory:  reg.Inventory(),
		UnitOfWork: reg,
		Audit:      audit,
		Clock:      clock,
		Logger:     logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	carts, err := services.NewCartService(services.CartServiceDeps{
		Carts:           reg.Carts(),
		Catalog:         reg.Catalog(),
		UnitOfWork:      reg,
		DefaultCurrency: deps.Config.Cart.DefaultCurrency,
		Clock:           clock,
		Logger:          logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Carts:      reg.Carts(),
		Addresses:  reg.Addresses(),
		Catalog:    reg.Catalog(),
		Inventory:  inventory,
		UnitOfWork: reg,
		Events:     deps.Events,
		Audit:      audit,
		Clock:      clock,
		Logger:     logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	paymentsSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Payments:  reg.Payments(),
		Orders:    reg.Orders(),
		OrderFlow: orders,
		Providers: resolver,
		Audit:     audit,
		Clock:     clock,
		Logger:    logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	returns, err := services.NewReturnService(services.ReturnServiceDeps{
		Returns:    reg.Returns(),
		Orders:     reg.Orders(),
		OrderFlow:  orders,
		Inventory:  inventory,
		UnitOfWork: reg,
		Audit:      audit,
		Clock:      clock,
		Logger:     logFn,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	system, err := services.NewSystemService(services.SystemServiceDeps{
		Health: reg.Health(),
		Audit:  audit,
		Clock:  clock,
	})
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	return &Container{
		Config:       deps.Config,
		Repositories: reg,
		Services: Services{
			Audit:     audit,
			Users:     users,
			Catalog:   catalog,
			Inventory: inventory,
			Carts:     carts,
			Orders:    orders,
			Payments:  paymentsSvc,
			Returns:   returns,
			System:    system,
		},
		Tokens:    tokens,
		Providers: resolver,
	}, nil
}

// Close releases repository resources such as the shared connection pool.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// buildProviderResolver assembles the payment provider set. COD is always
// available; Stripe joins when an API key is configured, and the fake provider
// fills in for Stripe in development environments without one.
func buildProviderResolver(cfg config.StripeConfig, logFn payments.StripeLogger) (*payments.Resolver, error) {
	providers := []payments.Provider{payments.NewCODProvider()}
	if cfg.APIKey != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.APIKey,
			Logger: logFn,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, stripeProvider)
	} else {
		providers = append(providers, payments.NewFakeProvider())
	}
	return payments.NewResolver(providers...)
}

// serviceLogger adapts zap to the event-style logging hook services accept,
// preferring the request-scoped logger when one is on the context.
func serviceLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = base
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
