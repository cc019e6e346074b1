package mysql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maisonmarche/storefront-api/internal/domain"
)

// jsonMap serialises free-form metadata into a JSON column.
type jsonMap map[string]any

func (m jsonMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *jsonMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("mysql: cannot scan %T into jsonMap", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// jsonReturnItems serialises the return line references into a JSON column.
type jsonReturnItems []domain.ReturnItem

func (items jsonReturnItems) Value() (driver.Value, error) {
	if len(items) == 0 {
		return nil, nil
	}
	return json.Marshal(items)
}

func (items *jsonReturnItems) Scan(src any) error {
	if src == nil {
		*items = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("mysql: cannot scan %T into jsonReturnItems", src)
	}
	if len(raw) == 0 {
		*items = nil
		return nil
	}
	return json.Unmarshal(raw, items)
}

// addressSnapshot is the immutable copy of an address stored on the order row.
type addressSnapshot struct {
	AddressID   uint64 `json:"address_id"`
	Label       string `json:"label,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

func snapshotFromAddress(addr domain.Address) addressSnapshot {
	return addressSnapshot{
		AddressID:   addr.ID,
		Label:       addr.Label,
		FirstName:   addr.FirstName,
		LastName:    addr.LastName,
		Company:     addr.Company,
		Phone:       addr.Phone,
		Line1:       addr.Line1,
		Line2:       addr.Line2,
		City:        addr.City,
		State:       addr.State,
		PostalCode:  addr.PostalCode,
		CountryCode: addr.CountryCode,
	}
}

func (s addressSnapshot) toDomain() domain.Address {
	return domain.Address{
		ID:          s.AddressID,
		Label:       s.Label,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Company:     s.Company,
		Phone:       s.Phone,
		Line1:       s.Line1,
		Line2:       s.Line2,
		City:        s.City,
		State:       s.State,
		PostalCode:  s.PostalCode,
		CountryCode: s.CountryCode,
	}
}

func (s addressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *addressSnapshot) Scan(src any) error {
	if src == nil {
		*s = addressSnapshot{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("mysql: cannot scan %T into addressSnapshot", src)
	}
	if len(raw) == 0 {
		*s = addressSnapshot{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

type productModel struct {
	ID               uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryID       *uint64 `gorm:"column:category_id;index"`
	Type             string  `gorm:"column:type;size:16;not null"`
	SKU              string  `gorm:"column:sku;size:64;uniqueIndex;not null"`
	Name             string  `gorm:"column:name;size:255;not null"`
	Slug             string  `gorm:"column:slug;size:255;uniqueIndex;not null"`
	ShortDescription string  `gorm:"column:short_description;type:text"`
	Description      string  `gorm:"column:description;type:text"`
	PriceCents       int64   `gorm:"column:price_cents;not null"`
	ComparePriceCents *int64 `gorm:"column:compare_price_cents"`
	Currency         string  `gorm:"column:currency;size:3;not null"`
	StockQuantity    int64   `gorm:"column:stock_quantity;not null;default:0"`
	StockStatus      string  `gorm:"column:stock_status;size:16;not null"`
	IsActive         bool    `gorm:"column:is_active;not null;default:true"`
	Attributes       jsonMap `gorm:"column:attributes;type:json"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (productModel) TableName() string { return "products" }

func (m productModel) toDomain() domain.Product {
	p := domain.Product{
		ID:               m.ID,
		CategoryID:       m.CategoryID,
		Type:             domain.ProductType(m.Type),
		SKU:              m.SKU,
		Name:             m.Name,
		Slug:             m.Slug,
		ShortDescription: m.ShortDescription,
		Description:      m.Description,
		Price:            domain.Cents(m.PriceCents),
		Currency:         m.Currency,
		StockQuantity:    m.StockQuantity,
		StockStatus:      domain.StockStatus(m.StockStatus),
		IsActive:         m.IsActive,
		Attributes:       m.Attributes,
		PublishedAt:      m.PublishedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.ComparePriceCents != nil {
		cp := domain.Cents(*m.ComparePriceCents)
		p.ComparePrice = &cp
	}
	return p
}

func productToModel(p domain.Product) productModel {
	m := productModel{
		ID:               p.ID,
		CategoryID:       p.CategoryID,
		Type:             string(p.Type),
		SKU:              p.SKU,
		Name:             p.Name,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		PriceCents:       int64(p.Price),
		Currency:         p.Currency,
		StockQuantity:    p.StockQuantity,
		StockStatus:      string(p.StockStatus),
		IsActive:         p.IsActive,
		Attributes:       jsonMap(p.Attributes),
		PublishedAt:      p.PublishedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.ComparePrice != nil {
		cp := int64(*p.ComparePrice)
		m.ComparePriceCents = &cp
	}
	return m
}

type variantModel struct {
	ID                uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID         uint64  `gorm:"column:product_id;index;not null"`
	SKU               string  `gorm:"column:sku;size:64;uniqueIndex;not null"`
	Name              string  `gorm:"column:name;size:255;not null"`
	PriceCents        int64   `gorm:"column:price_cents;not null"`
	ComparePriceCents *int64  `gorm:"column:compare_price_cents"`
	Currency          string  `gorm:"column:currency;size:3;not null"`
	StockQuantity     int64   `gorm:"column:stock_quantity;not null;default:0"`
	StockStatus       string  `gorm:"column:stock_status;size:16;not null"`
	IsActive          bool    `gorm:"column:is_active;not null;default:true"`
	Attributes        jsonMap `gorm:"column:attributes;type:json"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (variantModel) TableName() string { return "product_variants" }

func (m variantModel) toDomain() domain.ProductVariant {
	v := domain.ProductVariant{
		ID:            m.ID,
		ProductID:     m.ProductID,
		SKU:           m.SKU,
		Name:          m.Name,
		Price:         domain.Cents(m.PriceCents),
		Currency:      m.Currency,
		StockQuantity: m.StockQuantity,
		StockStatus:   domain.StockStatus(m.StockStatus),
		IsActive:      m.IsActive,
		Attributes:    m.Attributes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.ComparePriceCents != nil {
		cp := domain.Cents(*m.ComparePriceCents)
		v.ComparePrice = &cp
	}
	return v
}

func variantToModel(v domain.ProductVariant) variantModel {
	m := variantModel{
		ID:            v.ID,
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		Name:          v.Name,
		PriceCents:    int64(v.Price),
		Currency:      v.Currency,
		StockQuantity: v.StockQuantity,
		StockStatus:   string(v.StockStatus),
		IsActive:      v.IsActive,
		Attributes:    jsonMap(v.Attributes),
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if v.ComparePrice != nil {
		cp := int64(*v.ComparePrice)
		m.ComparePriceCents = &cp
	}
	return m
}

type stockMovementModel struct {
	ID            uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	Reference     string  `gorm:"column:reference;size:64;uniqueIndex;not null"`
	StockableKind string  `gorm:"column:stockable_kind;size:16;not null;index:idx_stock_movements_stockable"`
	StockableID   uint64  `gorm:"column:stockable_id;not null;index:idx_stock_movements_stockable"`
	UserID        *uint64 `gorm:"column:user_id"`
	Quantity      int64   `gorm:"column:quantity;not null"`
	BalanceAfter  int64   `gorm:"column:balance_after;not null"`
	Reason        string  `gorm:"column:reason;size:32;not null;index"`
	Description   string  `gorm:"column:description;size:255"`
	Metadata      jsonMap `gorm:"column:metadata;type:json"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (stockMovementModel) TableName() string { return "stock_movements" }

func (m stockMovementModel) toDomain() domain.StockMovement {
	return domain.StockMovement{
		ID:        m.ID,
		Reference: m.Reference,
		Stockable: domain.PurchasableRef{
			Kind: domain.PurchasableKind(m.StockableKind),
			ID:   m.StockableID,
		},
		UserID:       m.UserID,
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		Description:  m.Description,
		Metadata:     m.Metadata,
		CreatedAt:    m.CreatedAt,
	}
}

func movementToModel(mv domain.StockMovement) stockMovementModel {
	return stockMovementModel{
		ID:            mv.ID,
		Reference:     mv.Reference,
		StockableKind: string(mv.Stockable.Kind),
		StockableID:   mv.Stockable.ID,
		UserID:        mv.UserID,
		Quantity:      mv.Quantity,
		BalanceAfter:  mv.BalanceAfter,
		Reason:        mv.Reason,
		Description:   mv.Description,
		Metadata:      jsonMap(mv.Metadata),
		CreatedAt:     mv.CreatedAt,
	}
}

type cartModel struct {
	ID         uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     *uint64 `gorm:"column:user_id;index"`
	GuestToken string  `gorm:"column:guest_token;size:64;index"`
	Currency   string  `gorm:"column:currency;size:3"`
	Status     string  `gorm:"column:status;size:16;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (cartModel) TableName() string { return "carts" }

func (m cartModel) toDomain(items []cartItemModel) domain.Cart {
	cart := domain.Cart{
		ID:         m.ID,
		UserID:     m.UserID,
		GuestToken: m.GuestToken,
		Currency:   m.Currency,
		Status:     domain.CartStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	for _, item := range items {
		cart.Items = append(cart.Items, item.toDomain())
	}
	return cart
}

type cartItemModel struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CartID          uint64 `gorm:"column:cart_id;not null;uniqueIndex:idx_cart_items_line"`
	PurchasableKind string `gorm:"column:purchasable_kind;size:16;not null;uniqueIndex:idx_cart_items_line"`
	PurchasableID   uint64 `gorm:"column:purchasable_id;not null;uniqueIndex:idx_cart_items_line"`
	Quantity        int64  `gorm:"column:quantity;not null"`
	UnitPriceCents  int64  `gorm:"column:unit_price_cents;not null"`
	Currency        string `gorm:"column:currency;size:3;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (cartItemModel) TableName() string { return "cart_items" }

func (m cartItemModel) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:     m.ID,
		CartID: m.CartID,
		Purchasable: domain.PurchasableRef{
			Kind: domain.PurchasableKind(m.PurchasableKind),
			ID:   m.PurchasableID,
		},
		Quantity:  m.Quantity,
		UnitPrice: domain.Cents(m.UnitPriceCents),
		Currency:  m.Currency,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func cartItemToModel(item domain.CartItem) cartItemModel {
	return cartItemModel{
		ID:              item.ID,
		CartID:          item.CartID,
		PurchasableKind: string(item.Purchasable.Kind),
		PurchasableID:   item.Purchasable.ID,
		Quantity:        item.Quantity,
		UnitPriceCents:  int64(item.UnitPrice),
		Currency:        item.Currency,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

type orderModel struct {
	ID                  uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID              *uint64 `gorm:"column:user_id;index"`
	CartID              uint64  `gorm:"column:cart_id;uniqueIndex;not null"`
	Status              string  `gorm:"column:status;size:16;not null;index"`
	Currency            string  `gorm:"column:currency;size:3;not null"`
	SubtotalCents       int64   `gorm:"column:subtotal_cents;not null"`
	DiscountTotalCents  int64   `gorm:"column:discount_total_cents;not null;default:0"`
	ShippingTotalCents  int64   `gorm:"column:shipping_total_cents;not null;default:0"`
	TaxTotalCents       int64   `gorm:"column:tax_total_cents;not null;default:0"`
	GrandTotalCents     int64   `gorm:"column:grand_total_cents;not null"`
	ShippingAddressID   uint64  `gorm:"column:shipping_address_id;not null"`
	BillingAddressID    uint64  `gorm:"column:billing_address_id;not null"`
	ShippingAddress     addressSnapshot `gorm:"column:shipping_address;type:json"`
	BillingAddress      addressSnapshot `gorm:"column:billing_address;type:json"`
	TrackingNumber      string  `gorm:"column:tracking_number;size:64"`
	TrackingCarrier     string  `gorm:"column:tracking_carrier;size:64"`
	TrackingURL         string  `gorm:"column:tracking_url;size:512"`
	PlacedAt            time.Time  `gorm:"column:placed_at;not null"`
	ShippedAt           *time.Time `gorm:"column:shipped_at"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

func (m orderModel) toDomain(items []orderItemModel) domain.Order {
	order := domain.Order{
		ID:     m.ID,
		UserID: m.UserID,
		CartID: m.CartID,
		Status: domain.OrderStatus(m.Status),
		Totals: domain.OrderTotals{
			Currency:      m.Currency,
			Subtotal:      domain.Cents(m.SubtotalCents),
			DiscountTotal: domain.Cents(m.DiscountTotalCents),
			ShippingTotal: domain.Cents(m.ShippingTotalCents),
			TaxTotal:      domain.Cents(m.TaxTotalCents),
			GrandTotal:    domain.Cents(m.GrandTotalCents),
		},
		ShippingAddressID: m.ShippingAddressID,
		BillingAddressID:  m.BillingAddressID,
		ShippingAddress:   m.ShippingAddress.toDomain(),
		BillingAddress:    m.BillingAddress.toDomain(),
		TrackingNumber:    m.TrackingNumber,
		TrackingCarrier:   m.TrackingCarrier,
		TrackingURL:       m.TrackingURL,
		PlacedAt:          m.PlacedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, item := range items {
		order.Items = append(order.Items, item.toDomain())
	}
	return order
}

func orderToModel(o domain.Order) orderModel {
	return orderModel{
		ID:                 o.ID,
		UserID:             o.UserID,
		CartID:             o.CartID,
		Status:             string(o.Status),
		Currency:           o.Totals.Currency,
		SubtotalCents:      int64(o.Totals.Subtotal),
		DiscountTotalCents: int64(o.Totals.DiscountTotal),
		ShippingTotalCents: int64(o.Totals.ShippingTotal),
		TaxTotalCents:      int64(o.Totals.TaxTotal),
		GrandTotalCents:    int64(o.Totals.GrandTotal),
		ShippingAddressID:  o.ShippingAddressID,
		BillingAddressID:   o.BillingAddressID,
		ShippingAddress:    snapshotFromAddress(o.ShippingAddress),
		BillingAddress:     snapshotFromAddress(o.BillingAddress),
		TrackingNumber:     o.TrackingNumber,
		TrackingCarrier:    o.TrackingCarrier,
		TrackingURL:        o.TrackingURL,
		PlacedAt:           o.PlacedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

type orderItemModel struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         uint64  `gorm:"column:order_id;index;not null"`
	PurchasableKind string  `gorm:"column:purchasable_kind;size:16;not null"`
	PurchasableID   uint64  `gorm:"column:purchasable_id;not null"`
	SKU             string  `gorm:"column:sku;size:64;not null"`
	Name            string  `gorm:"column:name;size:255;not null"`
	Quantity        int64   `gorm:"column:quantity;not null"`
	UnitPriceCents  int64   `gorm:"column:unit_price_cents;not null"`
	LineTotalCents  int64   `gorm:"column:line_total_cents;not null"`
	Currency        string  `gorm:"column:currency;size:3;not null"`
	Metadata        jsonMap `gorm:"column:metadata;type:json"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (orderItemModel) TableName() string { return "order_items" }

func (m orderItemModel) toDomain() domain.OrderItem {
	return domain.OrderItem{
		ID:      m.ID,
		OrderID: m.OrderID,
		Purchasable: domain.PurchasableRef{
			Kind: domain.PurchasableKind(m.PurchasableKind),
			ID:   m.PurchasableID,
		},
		SKU:       m.SKU,
		Name:      m.Name,
		Quantity:  m.Quantity,
		UnitPrice: domain.Cents(m.UnitPriceCents),
		LineTotal: domain.Cents(m.LineTotalCents),
		Currency:  m.Currency,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}

func orderItemToModel(item domain.OrderItem) orderItemModel {
	return orderItemModel{
		ID:              item.ID,
		OrderID:         item.OrderID,
		PurchasableKind: string(item.Purchasable.Kind),
		PurchasableID:   item.Purchasable.ID,
		SKU:             item.SKU,
		Name:            item.Name,
		Quantity:        item.Quantity,
		UnitPriceCents:  int64(item.UnitPrice),
		LineTotalCents:  int64(item.LineTotal),
		Currency:        item.Currency,
		Metadata:        jsonMap(item.Metadata),
		CreatedAt:       item.CreatedAt,
	}
}

type paymentModel struct {
	ID                uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           uint64  `gorm:"column:order_id;index;not null"`
	UserID            *uint64 `gorm:"column:user_id"`
	Provider          string  `gorm:"column:provider;size:32;not null;uniqueIndex:idx_payments_provider_ref"`
	ProviderReference string  `gorm:"column:provider_reference;size:128;uniqueIndex:idx_payments_provider_ref"`
	Status            string  `gorm:"column:status;size:24;not null"`
	Currency          string  `gorm:"column:currency;size:3;not null"`
	AmountCents       int64   `gorm:"column:amount_cents;not null"`
	ClientSecret      string  `gorm:"column:client_secret;size:255"`
	CheckoutURL       string  `gorm:"column:checkout_url;size:512"`
	Metadata          jsonMap `gorm:"column:metadata;type:json"`
	ErrorCode         string  `gorm:"column:error_code;size:64"`
	ErrorMessage      string  `gorm:"column:error_message;size:512"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (paymentModel) TableName() string { return "payments" }

func (m paymentModel) toDomain() domain.Payment {
	return domain.Payment{
		ID:                m.ID,
		OrderID:           m.OrderID,
		UserID:            m.UserID,
		Provider:          m.Provider,
		ProviderReference: m.ProviderReference,
		Status:            domain.PaymentStatus(m.Status),
		Currency:          m.Currency,
		Amount:            domain.Cents(m.AmountCents),
		ClientSecret:      m.ClientSecret,
		CheckoutURL:       m.CheckoutURL,
		Metadata:          m.Metadata,
		ErrorCode:         m.ErrorCode,
		ErrorMessage:      m.ErrorMessage,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func paymentToModel(p domain.Payment) paymentModel {
	return paymentModel{
		ID:                p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		Provider:          p.Provider,
		ProviderReference: p.ProviderReference,
		Status:            string(p.Status),
		Currency:          p.Currency,
		AmountCents:       int64(p.Amount),
		ClientSecret:      p.ClientSecret,
		CheckoutURL:       p.CheckoutURL,
		Metadata:          jsonMap(p.Metadata),
		ErrorCode:         p.ErrorCode,
		ErrorMessage:      p.ErrorMessage,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type returnModel struct {
	ID                    uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID               uint64          `gorm:"column:order_id;index;not null"`
	UserID                uint64          `gorm:"column:user_id;index;not null"`
	Status                string          `gorm:"column:status;size:16;not null"`
	Reason                string          `gorm:"column:reason;size:64;not null"`
	Description           string          `gorm:"column:description;type:text"`
	Items                 jsonReturnItems `gorm:"column:items;type:json"`
	RefundAmountCents     *int64          `gorm:"column:refund_amount_cents"`
	ReturnTrackingNumber  string          `gorm:"column:return_tracking_number;size:64"`
	ReturnTrackingCarrier string          `gorm:"column:return_tracking_carrier;size:64"`
	ApprovedAt            *time.Time      `gorm:"column:approved_at"`
	ReceivedAt            *time.Time      `gorm:"column:received_at"`
	RefundedAt            *time.Time      `gorm:"column:refunded_at"`
	CreatedAt             time.Time       `gorm:"column:created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at"`
}

func (returnModel) TableName() string { return "order_returns" }

func (m returnModel) toDomain() domain.OrderReturn {
	ret := domain.OrderReturn{
		ID:                    m.ID,
		OrderID:               m.OrderID,
		UserID:                m.UserID,
		Status:                domain.ReturnStatus(m.Status),
		Reason:                m.Reason,
		Description:           m.Description,
		Items:                 m.Items,
		ReturnTrackingNumber:  m.ReturnTrackingNumber,
		ReturnTrackingCarrier: m.ReturnTrackingCarrier,
		ApprovedAt:            m.ApprovedAt,
		ReceivedAt:            m.ReceivedAt,
		RefundedAt:            m.RefundedAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.RefundAmountCents != nil {
		amount := domain.Cents(*m.RefundAmountCents)
		ret.RefundAmount = &amount
	}
	return ret
}

func returnToModel(ret domain.OrderReturn) returnModel {
	m := returnModel{
		ID:                    ret.ID,
		OrderID:               ret.OrderID,
		UserID:                ret.UserID,
		Status:                string(ret.Status),
		Reason:                ret.Reason,
		Description:           ret.Description,
		Items:                 jsonReturnItems(ret.Items),
		ReturnTrackingNumber:  ret.ReturnTrackingNumber,
		ReturnTrackingCarrier: ret.ReturnTrackingCarrier,
		ApprovedAt:            ret.ApprovedAt,
		ReceivedAt:            ret.ReceivedAt,
		RefundedAt:            ret.RefundedAt,
		CreatedAt:             ret.CreatedAt,
		UpdatedAt:             ret.UpdatedAt,
	}
	if ret.RefundAmount != nil {
		amount := int64(*ret.RefundAmount)
		m.RefundAmountCents = &amount
	}
	return m
}

type userModel struct {
	ID           uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string `gorm:"column:email;size:255;uniqueIndex;not null"`
	Name         string `gorm:"column:name;size:255;not null"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null"`
	Role         string `gorm:"column:role;size:16;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func userToModel(u domain.User) userModel {
	return userModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type addressModel struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      uint64 `gorm:"column:user_id;index;not null"`
	Label       string `gorm:"column:label;size:64"`
	FirstName   string `gorm:"column:first_name;size:128;not null"`
	LastName    string `gorm:"column:last_name;size:128;not null"`
	Company     string `gorm:"column:company;size:128"`
	Phone       string `gorm:"column:phone;size:32"`
	Line1       string `gorm:"column:line1;size:255;not null"`
	Line2       string `gorm:"column:line2;size:255"`
	City        string `gorm:"column:city;size:128;not null"`
	State       string `gorm:"column:state;size:128"`
	PostalCode  string `gorm:"column:postal_code;size:32;not null"`
	CountryCode string `gorm:"column:country_code;size:2;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (addressModel) TableName() string { return "addresses" }

func (m addressModel) toDomain() domain.Address {
	return domain.Address{
		ID:          m.ID,
		UserID:      m.UserID,
		Label:       m.Label,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Company:     m.Company,
		Phone:       m.Phone,
		Line1:       m.Line1,
		Line2:       m.Line2,
		City:        m.City,
		State:       m.State,
		PostalCode:  m.PostalCode,
		CountryCode: m.CountryCode,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func addressToModel(a domain.Address) addressModel {
	return addressModel{
		ID:          a.ID,
		UserID:      a.UserID,
		Label:       a.Label,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Company:     a.Company,
		Phone:       a.Phone,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type auditLogModel struct {
	ID        uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	Actor     string  `gorm:"column:actor;size:64;index;not null"`
	ActorType string  `gorm:"column:actor_type;size:16;not null"`
	Action    string  `gorm:"column:action;size:64;index;not null"`
	TargetRef string  `gorm:"column:target_ref;size:128;index;not null"`
	Metadata  jsonMap `gorm:"column:metadata;type:json"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func (m auditLogModel) toDomain() domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:        m.ID,
		Actor:     m.Actor,
		ActorType: m.ActorType,
		Action:    m.Action,
		TargetRef: m.TargetRef,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}

func auditToModel(entry domain.AuditLogEntry) auditLogModel {
	return auditLogModel{
		ID:        entry.ID,
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  jsonMap(entry.Metadata),
		CreatedAt: entry.CreatedAt,
	}
}
