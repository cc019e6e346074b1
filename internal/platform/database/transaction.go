package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type txContextKey struct{}

// WithTx stores an open transaction handle on the context so repositories
// participating in the same unit of work share it.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction handle carried by the context, if any.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// TxManager runs functions inside a database transaction, propagating the
// transaction handle through the context. Nested calls join the enclosing
// transaction rather than opening a new one.
type TxManager struct {
	provider *Provider
}

// NewTxManager constructs a TxManager bound to the provider.
func NewTxManager(provider *Provider) (*TxManager, error) {
	if provider == nil {
		return nil, errors.New("database: provider is required")
	}
	return &TxManager{provider: provider}, nil
}

// RunInTx executes fn within a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("database: transaction function is nil")
	}
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	db, err := m.provider.DB(ctx)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
