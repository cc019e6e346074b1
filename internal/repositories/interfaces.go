package repositories

import (
	"context"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Inventory() InventoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Returns() ReturnRepository
	Users() UserRepository
	Addresses() AddressRepository
	AuditLogs() AuditLogRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary.
// Repositories invoked inside fn share the same database transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogRepository stores products and variants and resolves purchasable references.
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.Page[domain.Product], error)
	GetProduct(ctx context.Context, productID uint64) (domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
	InsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID uint64) error

	ListVariants(ctx context.Context, productID uint64) ([]domain.ProductVariant, error)
	GetVariant(ctx context.Context, variantID uint64) (domain.ProductVariant, error)
	InsertVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error)
	UpdateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error)
	DeleteVariant(ctx context.Context, variantID uint64) error

	// ResolvePurchasable projects the stockable fields of a product or variant.
	ResolvePurchasable(ctx context.Context, ref domain.PurchasableRef) (domain.Purchasable, error)
}

// InventoryRepository owns stock quantities and the append-only movement ledger.
type InventoryRepository interface {
	// LockStock reads the stock row of a purchasable under a pessimistic write
	// lock. Must run inside a unit of work.
	LockStock(ctx context.Context, ref domain.PurchasableRef) (StockState, error)
	// SaveStock persists the new quantity and status for a locked stock row.
	SaveStock(ctx context.Context, ref domain.PurchasableRef, quantity int64, status domain.StockStatus) error
	// AppendMovement writes one immutable ledger entry and returns it with its
	// assigned id.
	AppendMovement(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error)
	ListMovements(ctx context.Context, filter MovementListFilter) (domain.Page[domain.StockMovement], error)
	GetMovement(ctx context.Context, movementID uint64) (domain.StockMovement, error)
}

// StockState is the locked snapshot of a stockable row.
type StockState struct {
	Ref      domain.PurchasableRef
	Quantity int64
	Status   domain.StockStatus
}

// CartRepository owns cart header and item persistence.
type CartRepository interface {
	// FindActiveByUser returns the single active cart for a user.
	FindActiveByUser(ctx context.Context, userID uint64) (domain.Cart, error)
	// FindActiveByGuestToken returns the single active cart for a guest token.
	FindActiveByGuestToken(ctx context.Context, token string) (domain.Cart, error)
	Insert(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	// LockCart reloads a cart and its items under a pessimistic write lock.
	// Must run inside a unit of work.
	LockCart(ctx context.Context, cartID uint64) (domain.Cart, error)
	GetCart(ctx context.Context, cartID uint64) (domain.Cart, error)
	UpdateCurrency(ctx context.Context, cartID uint64, currency string) error
	// MarkOrdered flips an active cart to ordered. Returns a conflict error when
	// the cart is no longer active.
	MarkOrdered(ctx context.Context, cartID uint64) error
	Delete(ctx context.Context, cartID uint64) error

	UpsertItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uint64, quantity int64) error
	DeleteItem(ctx context.Context, itemID uint64) error
	DeleteItems(ctx context.Context, cartID uint64) error
}

// OrderRepository persists order headers with their immutable item snapshots.
type OrderRepository interface {
	// Insert stores the order and its items, returning the order with ids assigned.
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID uint64) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	// UpdateStatus transitions the order guarded on its current status; a stale
	// expected status yields a conflict error.
	UpdateStatus(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update OrderStatusUpdate) error
	UpdateTracking(ctx context.Context, orderID uint64, tracking TrackingUpdate) error
}

// OrderStatusUpdate carries optional timestamps stamped during a transition.
type OrderStatusUpdate struct {
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// TrackingUpdate carries carrier fields written by fulfilment.
type TrackingUpdate struct {
	Number  string
	Carrier string
	URL     string
}

// PaymentRepository stores payment attempts against orders.
type PaymentRepository interface {
	Insert(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	Update(ctx context.Context, payment domain.Payment) error
	FindByID(ctx context.Context, paymentID uint64) (domain.Payment, error)
	// FindByProviderReference locates a payment by the provider's own id, e.g.
	// a Stripe PaymentIntent id.
	FindByProviderReference(ctx context.Context, provider, reference string) (domain.Payment, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]domain.Payment, error)
}

// ReturnRepository stores return requests raised against orders.
type ReturnRepository interface {
	Insert(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error)
	Update(ctx context.Context, ret domain.OrderReturn) error
	FindByID(ctx context.Context, returnID uint64) (domain.OrderReturn, error)
	List(ctx context.Context, filter ReturnListFilter) (domain.Page[domain.OrderReturn], error)
}

// UserRepository stores account records.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID uint64) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// AddressRepository stores postal addresses per user.
type AddressRepository interface {
	List(ctx context.Context, userID uint64) ([]domain.Address, error)
	Get(ctx context.Context, userID, addressID uint64) (domain.Address, error)
	Insert(ctx context.Context, addr domain.Address) (domain.Address, error)
	Update(ctx context.Context, addr domain.Address) (domain.Address, error)
	Delete(ctx context.Context, userID, addressID uint64) error
}

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.Page[domain.AuditLogEntry], error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type ProductListFilter struct {
	CategoryID *uint64
	Type       *domain.ProductType
	ActiveOnly bool
	Search     string
	Page       int
	PerPage    int
}

type MovementListFilter struct {
	Stockable *domain.PurchasableRef
	Reason    string
	Page      int
	PerPage   int
}

type OrderListFilter struct {
	UserID   *uint64
	Statuses []domain.OrderStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

type ReturnListFilter struct {
	UserID   *uint64
	OrderID  *uint64
	Statuses []domain.ReturnStatus
	Page     int
	PerPage  int
}

type AuditLogFilter struct {
	TargetRef string
	Actor     string
	Action    string
	Page      int
	PerPage   int
}
