package domain

import (
	"fmt"
	"strings"
	"time"
)

// PurchasableKind discriminates the closed set of entities a cart or order line
// may reference.
type PurchasableKind string

const (
	// PurchasableProduct references a simple product sold directly.
	PurchasableProduct PurchasableKind = "product"
	// PurchasableVariant references a variant of a variable product.
	PurchasableVariant PurchasableKind = "variant"
)

// ParsePurchasableKind validates a kind received from the outside world.
func ParsePurchasableKind(value string) (PurchasableKind, error) {
	switch PurchasableKind(strings.ToLower(strings.TrimSpace(value))) {
	case PurchasableProduct:
		return PurchasableProduct, nil
	case PurchasableVariant:
		return PurchasableVariant, nil
	default:
		return "", fmt.Errorf("unknown purchasable kind %q", value)
	}
}

// PurchasableRef identifies one stockable entity by kind and id.
type PurchasableRef struct {
	Kind PurchasableKind
	ID   uint64
}

func (r PurchasableRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// IsZero reports whether the reference points nowhere.
func (r PurchasableRef) IsZero() bool {
	return r.Kind == "" || r.ID == 0
}

// StockStatus enumerates the sale availability states of a stockable entity.
type StockStatus string

const (
	// StockStatusInStock marks an entity available for immediate sale.
	StockStatusInStock StockStatus = "in_stock"
	// StockStatusOutOfStock marks an entity that cannot currently be sold.
	StockStatusOutOfStock StockStatus = "out_of_stock"
	// StockStatusPreorder marks an entity sellable ahead of availability;
	// preorder bypasses cart-level stock checks.
	StockStatusPreorder StockStatus = "preorder"
)

// ValidStockStatus reports whether the given status belongs to the closed set.
func ValidStockStatus(status StockStatus) bool {
	switch status {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusPreorder:
		return true
	default:
		return false
	}
}

// ProductType distinguishes directly sellable products from variable ones that
// must be purchased through a variant.
type ProductType string

const (
	// ProductTypeSimple is sold directly.
	ProductTypeSimple ProductType = "simple"
	// ProductTypeVariable is only sold through its variants.
	ProductTypeVariable ProductType = "variable"
)

// Product is a catalogue entry and, for simple products, a stockable entity.
type Product struct {
	ID               uint64
	CategoryID       *uint64
	Type             ProductType
	SKU              string
	Name             string
	Slug             string
	ShortDescription string
	Description      string
	Price            Cents
	ComparePrice     *Cents
	Currency         string
	StockQuantity    int64
	StockStatus      StockStatus
	IsActive         bool
	Attributes       map[string]any
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductVariant is a concrete sellable variation of a variable product.
type ProductVariant struct {
	ID            uint64
	ProductID     uint64
	SKU           string
	Name          string
	Price         Cents
	ComparePrice  *Cents
	Currency      string
	StockQuantity int64
	StockStatus   StockStatus
	IsActive      bool
	Attributes    map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Purchasable is the projection of a product or variant that the cart engine
// and the stock ledger operate on.
type Purchasable struct {
	Ref           PurchasableRef
	SKU           string
	Name          string
	Price         Cents
	Currency      string
	StockQuantity int64
	StockStatus   StockStatus
	IsActive      bool
	// ProductType is set for product refs only; variants always sell directly.
	ProductType ProductType
}

// StockMovement is one immutable ledger entry. Movements are append-only and
// written exclusively by the inventory service.
type StockMovement struct {
	ID           uint64
	Reference    string
	Stockable    PurchasableRef
	UserID       *uint64
	Quantity     int64
	BalanceAfter int64
	Reason       string
	Description  string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// CartStatus enumerates cart lifecycle states.
type CartStatus string

const (
	// CartStatusActive is the single mutable cart per identity.
	CartStatusActive CartStatus = "active"
	// CartStatusOrdered marks a cart consumed by order creation; terminal.
	CartStatusOrdered CartStatus = "ordered"
)

// Cart is the active shopping cart for a user or guest session.
type Cart struct {
	ID         uint64
	UserID     *uint64
	GuestToken string
	Currency   string
	Status     CartStatus
	Items      []CartItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ItemCount returns the number of lines in the cart.
func (c Cart) ItemCount() int { return len(c.Items) }

// CartItem is one cart line; at most one line exists per (cart, purchasable).
type CartItem struct {
	ID          uint64
	CartID      uint64
	Purchasable PurchasableRef
	Quantity    int64
	UnitPrice   Cents
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Address is the immutable bag of postal fields snapshotted onto orders.
type Address struct {
	ID          uint64
	UserID      uint64
	Label       string
	FirstName   string
	LastName    string
	Company     string
	Phone       string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
	CountryCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderTotals carries the monetary breakdown of an order in integer cents.
type OrderTotals struct {
	Currency      string
	Subtotal      Cents
	DiscountTotal Cents
	ShippingTotal Cents
	TaxTotal      Cents
	GrandTotal    Cents
}

// Order is created from exactly one cart and mutated only through the status
// transition workflow.
type Order struct {
	ID                uint64
	UserID            *uint64
	CartID            uint64
	Status            OrderStatus
	Totals            OrderTotals
	ShippingAddressID uint64
	BillingAddressID  uint64
	ShippingAddress   Address
	BillingAddress    Address
	Items             []OrderItem
	TrackingNumber    string
	TrackingCarrier   string
	TrackingURL       string
	PlacedAt          time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is the immutable snapshot of a cart line at order-creation time.
type OrderItem struct {
	ID          uint64
	OrderID     uint64
	Purchasable PurchasableRef
	SKU         string
	Name        string
	Quantity    int64
	UnitPrice   Cents
	LineTotal   Cents
	Currency    string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// PaymentStatus enumerates normalised payment states shared across providers.
type PaymentStatus string

const (
	// PaymentStatusRequiresAction means the customer must complete a provider flow.
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	// PaymentStatusPendingCOD means the payment settles on delivery.
	PaymentStatusPendingCOD PaymentStatus = "pending_cod"
	// PaymentStatusSucceeded means the provider confirmed capture.
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	// PaymentStatusFailed means the provider reported a terminal failure.
	PaymentStatusFailed PaymentStatus = "failed"
)

// Payment records one payment attempt against an order.
type Payment struct {
	ID                uint64
	OrderID           uint64
	UserID            *uint64
	Provider          string
	ProviderReference string
	Status            PaymentStatus
	Currency          string
	Amount            Cents
	ClientSecret      string
	CheckoutURL       string
	Metadata          map[string]any
	ErrorCode         string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReturnStatus enumerates the independent status sequence of an order return.
type ReturnStatus string

const (
	// ReturnStatusRequested is the initial customer-created state.
	ReturnStatusRequested ReturnStatus = "requested"
	// ReturnStatusApproved means an operator accepted the return.
	ReturnStatusApproved ReturnStatus = "approved"
	// ReturnStatusReceived means the returned goods arrived back.
	ReturnStatusReceived ReturnStatus = "received"
	// ReturnStatusRefunded is terminal; the customer was refunded.
	ReturnStatusRefunded ReturnStatus = "refunded"
	// ReturnStatusRejected is terminal; the request was declined.
	ReturnStatusRejected ReturnStatus = "rejected"
)

// ReturnItem references an order item included in a return request.
type ReturnItem struct {
	OrderItemID uint64 `json:"order_item_id"`
	Quantity    int64  `json:"quantity"`
}

// OrderReturn tracks a return request raised against a delivered order.
type OrderReturn struct {
	ID                    uint64
	OrderID               uint64
	UserID                uint64
	Status                ReturnStatus
	Reason                string
	Description           string
	Items                 []ReturnItem
	RefundAmount          *Cents
	ReturnTrackingNumber  string
	ReturnTrackingCarrier string
	ApprovedAt            *time.Time
	ReceivedAt            *time.Time
	RefundedAt            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UserRole discriminates customers from back-office operators.
type UserRole string

const (
	// RoleCustomer is the default role for registered shoppers.
	RoleCustomer UserRole = "customer"
	// RoleAdmin unlocks back-office operations.
	RoleAdmin UserRole = "admin"
)

// User is an authenticated account.
type User struct {
	ID           uint64
	Email        string
	Name         string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Page is a simple offset-paginated result set.
type Page[T any] struct {
	Items      []T
	Total      int64
	PerPage    int
	PageNumber int
}
