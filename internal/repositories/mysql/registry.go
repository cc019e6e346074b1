package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

// Registry wires the MySQL backed repositories behind the repositories.Registry
// contract. All repositories share one connection pool and join any transaction
// carried by the context.
type Registry struct {
	provider *database.Provider
	tx       *database.TxManager

	catalog   *catalogRepository
	inventory *inventoryRepository
	carts     *cartRepository
	orders    *orderRepository
	payments  *paymentRepository
	returns   *returnRepository
	users     *userRepository
	addresses *addressRepository
	auditLogs *auditLogRepository
	health    repositories.HealthRepository
}

// NewRegistry constructs the registry from a database provider and a health
// repository probing the downstream dependencies.
func NewRegistry(provider *database.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("mysql: database provider is required")
	}
	if health == nil {
		return nil, errors.New("mysql: health repository is required")
	}
	tx, err := database.NewTxManager(provider)
	if err != nil {
		return nil, err
	}

	r := &Registry{provider: provider, tx: tx, health: health}
	r.catalog = &catalogRepository{registry: r}
	r.inventory = &inventoryRepository{registry: r}
	r.carts = &cartRepository{registry: r}
	r.orders = &orderRepository{registry: r}
	r.payments = &paymentRepository{registry: r}
	r.returns = &returnRepository{registry: r}
	r.users = &userRepository{registry: r}
	r.addresses = &addressRepository{registry: r}
	r.auditLogs = &auditLogRepository{registry: r}
	return r, nil
}

// Migrate creates or updates the schema for every repository model.
func (r *Registry) Migrate(ctx context.Context) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	return database.WrapError("registry.migrate", db.AutoMigrate(
		&productModel{},
		&variantModel{},
		&stockMovementModel{},
		&cartModel{},
		&cartItemModel{},
		&orderModel{},
		&orderItemModel{},
		&paymentModel{},
		&returnModel{},
		&userModel{},
		&addressModel{},
		&auditLogModel{},
	))
}

// Close releases the underlying connection pool.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close()
}

// RunInTx implements repositories.UnitOfWork.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.tx.RunInTx(ctx, fn)
}

func (r *Registry) Catalog() repositories.CatalogRepository     { return r.catalog }
func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }
func (r *Registry) Carts() repositories.CartRepository          { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository        { return r.orders }
func (r *Registry) Payments() repositories.PaymentRepository    { return r.payments }
func (r *Registry) Returns() repositories.ReturnRepository      { return r.returns }
func (r *Registry) Users() repositories.UserRepository          { return r.users }
func (r *Registry) Addresses() repositories.AddressRepository   { return r.addresses }
func (r *Registry) AuditLogs() repositories.AuditLogRepository  { return r.auditLogs }
func (r *Registry) Health() repositories.HealthRepository       { return r.health }

// session returns the transaction carried by the context, or a handle from the
// shared pool otherwise.
func (r *Registry) session(ctx context.Context) (*gorm.DB, error) {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx, nil
	}
	db, err := r.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// pageWindow normalises pagination values into a limit and offset.
func pageWindow(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
