package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maisonmarche/storefront-api/internal/platform/config"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = time.Hour
)

// ErrProviderClosed is returned when the provider has been shut down.
var ErrProviderClosed = errors.New("database: provider is closed")

// Provider lazily initialises a shared gorm connection pool.
type Provider struct {
	cfg         config.DatabaseConfig
	dialTimeout time.Duration
	gormConfig  *gorm.Config

	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// ProviderOption customises the Provider behaviour.
type ProviderOption func(*Provider)

// WithDialTimeout overrides the timeout used when opening the connection.
func WithDialTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.dialTimeout = timeout
		}
	}
}

// WithGormConfig overrides the gorm configuration applied at open time.
func WithGormConfig(cfg *gorm.Config) ProviderOption {
	return func(p *Provider) {
		if cfg != nil {
			p.gormConfig = cfg
		}
	}
}

// NewProvider constructs a Provider using the supplied configuration.
func NewProvider(cfg config.DatabaseConfig, opts ...ProviderOption) *Provider {
	provider := &Provider{
		cfg:         cfg,
		dialTimeout: defaultDialTimeout,
		gormConfig: &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

// DB returns the lazily initialised gorm handle.
func (p *Provider) DB(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("database: context is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.db != nil {
		return p.db, nil
	}

	db, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	p.db = db
	return db, nil
}

func (p *Provider) open(ctx context.Context) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(p.cfg.DSN()), p.gormConfig)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(defaultMaxOpenConns)
	sqlDB.SetMaxIdleConns(defaultMaxIdleConns)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx := ctx
	var cancel context.CancelFunc
	if p.dialTimeout > 0 {
		pingCtx, cancel = context.WithTimeout(ctx, p.dialTimeout)
	}
	if cancel != nil {
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool. The Provider cannot be reused afterwards.
func (p *Provider) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	p.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
