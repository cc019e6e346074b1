package services

import (
	"context"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cents              = domain.Cents
	PurchasableKind    = domain.PurchasableKind
	PurchasableRef     = domain.PurchasableRef
	Purchasable        = domain.Purchasable
	StockStatus        = domain.StockStatus
	StockMovement      = domain.StockMovement
	Product            = domain.Product
	ProductVariant     = domain.ProductVariant
	ProductType        = domain.ProductType
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	Address            = domain.Address
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	OrderTotals        = domain.OrderTotals
	Payment            = domain.Payment
	PaymentStatus      = domain.PaymentStatus
	OrderReturn        = domain.OrderReturn
	ReturnItem         = domain.ReturnItem
	ReturnStatus       = domain.ReturnStatus
	User               = domain.User
	UserRole           = domain.UserRole
	AuditLogEntry      = domain.AuditLogEntry
	SystemHealthReport = domain.SystemHealthReport
)

// Page mirrors the repository pagination envelope.
type Page[T any] = domain.Page[T]

// Actor identifies who performed a mutation for audit purposes.
type Actor struct {
	UserID *uint64
	Role   UserRole
	Label  string
}

// IsAdmin reports whether the actor holds back-office privileges.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// CartIdentity names the owner of a cart: an authenticated user, a guest
// token, or both during the merge that follows login.
type CartIdentity struct {
	UserID     *uint64
	GuestToken string
}

// IsZero reports whether no identity was supplied at all.
func (id CartIdentity) IsZero() bool {
	return id.UserID == nil && id.GuestToken == ""
}

// InventoryService is the single authoritative writer of stock quantities and
// the append-only movement ledger.
type InventoryService interface {
	// SyncStock sets an absolute quantity. Setting the same quantity and
	// status twice is a no-op and records no movement.
	SyncStock(ctx context.Context, cmd SyncStockCommand) (StockSyncResult, error)
	// DecrementStock consumes qty units under an exclusive row lock. This is
	// the only path order creation uses, so concurrent checkouts cannot
	// oversell.
	DecrementStock(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error)
	// IncrementStock restocks qty units, e.g. on a received return.
	IncrementStock(ctx context.Context, cmd IncrementStockCommand) (StockMovement, error)
	ListMovements(ctx context.Context, filter MovementListFilter) (Page[StockMovement], error)
	GetMovement(ctx context.Context, movementID uint64) (StockMovement, error)
}

// SyncStockCommand sets the absolute stock level of a purchasable.
type SyncStockCommand struct {
	Ref            PurchasableRef
	Quantity       int64
	OverrideStatus StockStatus
	Reason         string
	Description    string
	Metadata       map[string]any
	Actor          Actor
}

// StockSyncResult reports the outcome of a sync. NoOp syncs carry no movement.
type StockSyncResult struct {
	NoOp     bool
	Movement StockMovement
	Quantity int64
	Status   StockStatus
}

// DecrementStockCommand consumes stock, e.g. at order creation.
type DecrementStockCommand struct {
	Ref         PurchasableRef
	Quantity    int64
	Reason      string
	Description string
	Metadata    map[string]any
	Actor       Actor
}

// IncrementStockCommand adds stock back, e.g. a restock or received return.
type IncrementStockCommand struct {
	Ref         PurchasableRef
	Quantity    int64
	Reason      string
	Description string
	Metadata    map[string]any
	Actor       Actor
}

// MovementListFilter narrows the ledger listing.
type MovementListFilter struct {
	Stockable *PurchasableRef
	Reason    string
	Page      int
	PerPage   int
}

// CartService manages the single active cart per identity and its contents.
type CartService interface {
	// GetOrCreateCart returns the identity's active cart, creating one
	// lazily. A user presenting a guest token has the guest cart merged in
	// first.
	GetOrCreateCart(ctx context.Context, identity CartIdentity) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	// UpdateItemQuantity overwrites a line's quantity. Zero deletes the line.
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ClearCart(ctx context.Context, identity CartIdentity) (Cart, error)
}

// AddCartItemCommand adds quantity of a purchasable to the identity's cart.
type AddCartItemCommand struct {
	Identity CartIdentity
	Ref      PurchasableRef
	Quantity int64
}

// UpdateCartItemCommand overwrites one line's quantity.
type UpdateCartItemCommand struct {
	Identity CartIdentity
	ItemID   uint64
	Quantity int64
}

// RemoveCartItemCommand deletes one line.
type RemoveCartItemCommand struct {
	Identity CartIdentity
	ItemID   uint64
}

// OrderService converts carts into orders and drives the status workflow.
type OrderService interface {
	// CreateFromCart atomically converts the identity's active cart into a
	// pending order, decrementing stock for every line or failing entirely.
	CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID uint64, actor Actor) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (Page[Order], error)
	// TransitionStatus applies one workflow step, audits it, and publishes a
	// status-changed event.
	TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error)
	// Cancel is a convenience wrapper transitioning to cancelled.
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	// SetTracking records carrier fields and, while the order is processing,
	// transitions it to shipped.
	SetTracking(ctx context.Context, cmd SetTrackingCommand) (Order, error)
	// MarkDelivered transitions a shipped order to delivered and stamps
	// delivered_at.
	MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (Order, error)
	// MarkPaid is the audited webhook side channel moving a pending order to
	// paid outside the transition table.
	MarkPaid(ctx context.Context, cmd MarkPaidCommand) (Order, error)
}

// CreateOrderCommand converts the identity's active cart into an order.
type CreateOrderCommand struct {
	Identity          CartIdentity
	ShippingAddressID uint64
	BillingAddressID  uint64
	Actor             Actor
}

// OrderListFilter narrows order listings. Non-admin actors only see their own.
type OrderListFilter struct {
	Actor    Actor
	UserID   *uint64
	Statuses []OrderStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// TransitionOrderCommand applies one state-machine step.
type TransitionOrderCommand struct {
	OrderID uint64
	Next    OrderStatus
	Reason  string
	Actor   Actor
}

// CancelOrderCommand cancels an order that the workflow still allows to cancel.
type CancelOrderCommand struct {
	OrderID uint64
	Reason  string
	Actor   Actor
}

// SetTrackingCommand records carrier details on an order.
type SetTrackingCommand struct {
	OrderID uint64
	Number  string
	Carrier string
	URL     string
	Actor   Actor
}

// MarkDeliveredCommand completes the fulfilment of a shipped order.
type MarkDeliveredCommand struct {
	OrderID uint64
	Actor   Actor
}

// MarkPaidCommand is raised by payment webhooks only.
type MarkPaidCommand struct {
	OrderID   uint64
	PaymentID uint64
	Provider  string
	Reference string
}

// OrderStatusChangedEvent is published after every accepted transition.
type OrderStatusChangedEvent struct {
	OrderID    uint64      `json:"order_id"`
	UserID     *uint64     `json:"user_id,omitempty"`
	OldStatus  OrderStatus `json:"old_status"`
	NewStatus  OrderStatus `json:"new_status"`
	Reason     string      `json:"reason,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// OrderEventPublisher delivers status-changed events to interested listeners.
// Delivery failures never fail the transition that raised the event.
type OrderEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event OrderStatusChangedEvent) error
}

// PaymentService starts payment attempts and applies provider outcomes.
type PaymentService interface {
	// InitiatePayment creates a payment attempt for a pending order through
	// the named provider.
	InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (Payment, error)
	// ApplyProviderResult settles a payment from a verified webhook event and
	// moves the order accordingly.
	ApplyProviderResult(ctx context.Context, cmd ProviderResultCommand) (Payment, error)
	ListPayments(ctx context.Context, orderID uint64, actor Actor) ([]Payment, error)
}

// InitiatePaymentCommand starts a payment attempt.
type InitiatePaymentCommand struct {
	OrderID  uint64
	Provider string
	Actor    Actor
}

// ProviderResultCommand carries a normalised provider outcome.
type ProviderResultCommand struct {
	Provider     string
	Reference    string
	Succeeded    bool
	ErrorCode    string
	ErrorMessage string
}

// ReturnService drives the independent return workflow against orders.
type ReturnService interface {
	// RequestReturn opens a return; the first request against a delivered
	// order also moves the order to returned.
	RequestReturn(ctx context.Context, cmd RequestReturnCommand) (OrderReturn, error)
	Approve(ctx context.Context, cmd ReturnDecisionCommand) (OrderReturn, error)
	Reject(ctx context.Context, cmd ReturnDecisionCommand) (OrderReturn, error)
	// MarkReceived records the goods arriving back and restocks them.
	MarkReceived(ctx context.Context, cmd ReturnReceivedCommand) (OrderReturn, error)
	Refund(ctx context.Context, cmd ReturnRefundCommand) (OrderReturn, error)
	GetReturn(ctx context.Context, returnID uint64, actor Actor) (OrderReturn, error)
	ListReturns(ctx context.Context, filter ReturnListFilter) (Page[OrderReturn], error)
}

// RequestReturnCommand opens a return against a delivered or returned order.
type RequestReturnCommand struct {
	OrderID     uint64
	Reason      string
	Description string
	Items       []ReturnItem
	Actor       Actor
}

// ReturnDecisionCommand approves or rejects a requested return.
type ReturnDecisionCommand struct {
	ReturnID uint64
	Note     string
	Actor    Actor
}

// ReturnReceivedCommand records the physical receipt of returned goods.
type ReturnReceivedCommand struct {
	ReturnID        uint64
	TrackingNumber  string
	TrackingCarrier string
	Actor           Actor
}

// ReturnRefundCommand settles a received return.
type ReturnRefundCommand struct {
	ReturnID uint64
	Amount   *Cents
	Actor    Actor
}

// ReturnListFilter narrows return listings.
type ReturnListFilter struct {
	Actor    Actor
	UserID   *uint64
	OrderID  *uint64
	Statuses []ReturnStatus
	Page     int
	PerPage  int
}

// CatalogService owns product and variant reads and back-office writes.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (Page[Product], error)
	GetProduct(ctx context.Context, productID uint64) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	CreateProduct(ctx context.Context, cmd SaveProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd SaveProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID uint64, actor Actor) error
	ListVariants(ctx context.Context, productID uint64) ([]ProductVariant, error)
	CreateVariant(ctx context.Context, cmd SaveVariantCommand) (ProductVariant, error)
	UpdateVariant(ctx context.Context, cmd SaveVariantCommand) (ProductVariant, error)
	DeleteVariant(ctx context.Context, variantID uint64, actor Actor) error
	// ResolvePurchasable projects the sellable fields of a product or variant.
	ResolvePurchasable(ctx context.Context, ref PurchasableRef) (Purchasable, error)
}

// ProductListFilter narrows the catalogue listing.
type ProductListFilter struct {
	CategoryID *uint64
	Type       *ProductType
	ActiveOnly bool
	Search     string
	Page       int
	PerPage    int
}

// SaveProductCommand carries a full product payload for create or update.
type SaveProductCommand struct {
	Product Product
	Actor   Actor
}

// SaveVariantCommand carries a full variant payload for create or update.
type SaveVariantCommand struct {
	Variant ProductVariant
	Actor   Actor
}

// UserService owns accounts, credentials, and address books.
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (User, string, error)
	Login(ctx context.Context, cmd LoginCommand) (User, string, error)
	GetUser(ctx context.Context, userID uint64) (User, error)
	ListAddresses(ctx context.Context, userID uint64) ([]Address, error)
	GetAddress(ctx context.Context, userID, addressID uint64) (Address, error)
	CreateAddress(ctx context.Context, cmd SaveAddressCommand) (Address, error)
	UpdateAddress(ctx context.Context, cmd SaveAddressCommand) (Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uint64) error
}

// RegisterCommand creates an account.
type RegisterCommand struct {
	Email    string
	Name     string
	Password string
}

// LoginCommand verifies credentials.
type LoginCommand struct {
	Email    string
	Password string
}

// SaveAddressCommand carries a full address payload for create or update.
type SaveAddressCommand struct {
	Address Address
}

// AuditLogRecord is the write-side payload of the audit trail.
type AuditLogRecord struct {
	Actor      string
	ActorType  string
	Action     string
	TargetRef  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// AuditLogFilter narrows audit trail listings.
type AuditLogFilter struct {
	TargetRef string
	Actor     string
	Action    string
	Page      int
	PerPage   int
}

// AuditLogService records and lists the audit trail. Record never fails the
// mutation it documents.
type AuditLogService interface {
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogFilter) (Page[AuditLogEntry], error)
}

// SystemService exposes operational health and metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	ListAuditLogs(ctx context.Context, filter AuditLogFilter) (Page[AuditLogEntry], error)
}
