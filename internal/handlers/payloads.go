package handlers

import (
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/services"
)

type refPayload struct {
	Kind string `json:"kind"`
	ID   uint64 `json:"id"`
}

func buildRefPayload(ref domain.PurchasableRef) refPayload {
	return refPayload{Kind: string(ref.Kind), ID: ref.ID}
}

type pageMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func buildPageMeta[T any](page domain.Page[T]) pageMeta {
	return pageMeta{Total: page.Total, Page: page.PageNumber, PerPage: page.PerPage}
}

type cartItemPayload struct {
	ID          uint64     `json:"id"`
	Purchasable refPayload `json:"purchasable"`
	Quantity    int64      `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	Currency    string     `json:"currency"`
}

type cartPayload struct {
	ID         uint64            `json:"id"`
	GuestToken string            `json:"guest_token,omitempty"`
	Currency   string            `json:"currency"`
	Status     string            `json:"status"`
	Items      []cartItemPayload `json:"items"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ID:          item.ID,
			Purchasable: buildRefPayload(item.Purchasable),
			Quantity:    item.Quantity,
			UnitPrice:   int64(item.UnitPrice),
			Currency:    item.Currency,
		})
	}
	return cartPayload{
		ID:         cart.ID,
		GuestToken: cart.GuestToken,
		Currency:   cart.Currency,
		Status:     string(cart.Status),
		Items:      items,
		UpdatedAt:  cart.UpdatedAt,
	}
}

type addressPayload struct {
	ID          uint64 `json:"id,omitempty"`
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

func buildAddressPayload(addr services.Address) addressPayload {
	return addressPayload{
		ID:          addr.ID,
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

type totalsPayload struct {
	Currency      string `json:"currency"`
	Subtotal      int64  `json:"subtotal"`
	DiscountTotal int64  `json:"discount_total"`
	ShippingTotal int64  `json:"shipping_total"`
	TaxTotal      int64  `json:"tax_total"`
	GrandTotal    int64  `json:"grand_total"`
}

type orderItemPayload struct {
	ID          uint64     `json:"id"`
	Purchasable refPayload `json:"purchasable"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Quantity    int64      `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	LineTotal   int64      `json:"line_total"`
	Currency    string     `json:"currency"`
}

type orderPayload struct {
	ID              uint64             `json:"id"`
	UserID          *uint64            `json:"user_id,omitempty"`
	Status          string             `json:"status"`
	Totals          totalsPayload      `json:"totals"`
	ShippingAddress addressPayload     `json:"shipping_address"`
	BillingAddress  addressPayload     `json:"billing_address"`
	Items           []orderItemPayload `json:"items"`
	TrackingNumber  string             `json:"tracking_number,omitempty"`
	TrackingCarrier string             `json:"tracking_carrier,omitempty"`
	TrackingURL     string             `json:"tracking_url,omitempty"`
	PlacedAt        time.Time          `json:"placed_at"`
	ShippedAt       *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ID:          item.ID,
			Purchasable: buildRefPayload(item.Purchasable),
			SKU:         item.SKU,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   int64(item.UnitPrice),
			LineTotal:   int64(item.LineTotal),
			Currency:    item.Currency,
		})
	}
	return orderPayload{
		ID:     order.ID,
		UserID: order.UserID,
		Status: string(order.Status),
		Totals: totalsPayload{
			Currency:      order.Totals.Currency,
			Subtotal:      int64(order.Totals.Subtotal),
			DiscountTotal: int64(order.Totals.DiscountTotal),
			ShippingTotal: int64(order.Totals.ShippingTotal),
			TaxTotal:      int64(order.Totals.TaxTotal),
			GrandTotal:    int64(order.Totals.GrandTotal),
		},
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		BillingAddress:  buildAddressPayload(order.BillingAddress),
		Items:           items,
		TrackingNumber:  order.TrackingNumber,
		TrackingCarrier: order.TrackingCarrier,
		TrackingURL:     order.TrackingURL,
		PlacedAt:        order.PlacedAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
	}
}

type paymentPayload struct {
	ID                uint64 `json:"id"`
	OrderID           uint64 `json:"order_id"`
	Provider          string `json:"provider"`
	ProviderReference string `json:"provider_reference,omitempty"`
	Status            string `json:"status"`
	Currency          string `json:"currency"`
	Amount            int64  `json:"amount"`
	ClientSecret      string `json:"client_secret,omitempty"`
	CheckoutURL       string `json:"checkout_url,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

func buildPaymentPayload(payment services.Payment) paymentPayload {
	return paymentPayload{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		Provider:          payment.Provider,
		ProviderReference: payment.ProviderReference,
		Status:            string(payment.Status),
		Currency:          payment.Currency,
		Amount:            int64(payment.Amount),
		ClientSecret:      payment.ClientSecret,
		CheckoutURL:       payment.CheckoutURL,
		ErrorCode:         payment.ErrorCode,
		ErrorMessage:      payment.ErrorMessage,
	}
}

type returnPayload struct {
	ID              uint64              `json:"id"`
	OrderID         uint64              `json:"order_id"`
	Status          string              `json:"status"`
	Reason          string              `json:"reason"`
	Description     string              `json:"description,omitempty"`
	Items           []domain.ReturnItem `json:"items"`
	RefundAmount    *int64              `json:"refund_amount,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	TrackingCarrier string              `json:"tracking_carrier,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	ReceivedAt      *time.Time          `json:"received_at,omitempty"`
	RefundedAt      *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func buildReturnPayload(ret services.OrderReturn) returnPayload {
	var refund *int64
	if ret.RefundAmount != nil {
		amount := int64(*ret.RefundAmount)
		refund = &amount
	}
	return returnPayload{
		ID:              ret.ID,
		OrderID:         ret.OrderID,
		Status:          string(ret.Status),
		Reason:          ret.Reason,
		Description:     ret.Description,
		Items:           ret.Items,
		RefundAmount:    refund,
		TrackingNumber:  ret.ReturnTrackingNumber,
		TrackingCarrier: ret.ReturnTrackingCarrier,
		ApprovedAt:      ret.ApprovedAt,
		ReceivedAt:      ret.ReceivedAt,
		RefundedAt:      ret.RefundedAt,
		CreatedAt:       ret.CreatedAt,
	}
}

type movementPayload struct {
	ID           uint64     `json:"id"`
	Reference    string     `json:"reference"`
	Stockable    refPayload `json:"stockable"`
	UserID       *uint64    `json:"user_id,omitempty"`
	Quantity     int64      `json:"quantity"`
	BalanceAfter int64      `json:"balance_after"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func buildMovementPayload(movement services.StockMovement) movementPayload {
	return movementPayload{
		ID:           movement.ID,
		Reference:    movement.Reference,
		Stockable:    buildRefPayload(movement.Stockable),
		UserID:       movement.UserID,
		Quantity:     movement.Quantity,
		BalanceAfter: movement.BalanceAfter,
		Reason:       movement.Reason,
		Description:  movement.Description,
		CreatedAt:    movement.CreatedAt,
	}
}

type variantPayload struct {
	ID            uint64         `json:"id"`
	ProductID     uint64         `json:"product_id"`
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	Price         int64          `json:"price"`
	ComparePrice  *int64         `json:"compare_price,omitempty"`
	Currency      string         `json:"currency"`
	StockQuantity int64          `json:"stock_quantity"`
	StockStatus   string         `json:"stock_status"`
	IsActive      bool           `json:"is_active"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

func buildVariantPayload(variant services.ProductVariant) variantPayload {
	return variantPayload{
		ID:            variant.ID,
		ProductID:     variant.ProductID,
		SKU:           variant.SKU,
		Name:          variant.Name,
		Price:         int64(variant.Price),
		ComparePrice:  centsPointer(variant.ComparePrice),
		Currency:      variant.Currency,
		StockQuantity: variant.StockQuantity,
		StockStatus:   string(variant.StockStatus),
		IsActive:      variant.IsActive,
		Attributes:    variant.Attributes,
	}
}

type productPayload struct {
	ID               uint64         `json:"id"`
	CategoryID       *uint64        `json:"category_id,omitempty"`
	Type             string         `json:"type"`
	SKU              string         `json:"sku"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	ShortDescription string         `json:"short_description,omitempty"`
	Description      string         `json:"description,omitempty"`
	Price            int64          `json:"price"`
	ComparePrice     *int64         `json:"compare_price,omitempty"`
	Currency         string         `json:"currency"`
	StockQuantity    int64          `json:"stock_quantity"`
	StockStatus      string         `json:"stock_status"`
	IsActive         bool           `json:"is_active"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	PublishedAt      *time.Time     `json:"published_at,omitempty"`
}

func buildProductPayload(product services.Product) productPayload {
	return productPayload{
		ID:               product.ID,
		CategoryID:       product.CategoryID,
		Type:             string(product.Type),
		SKU:              product.SKU,
		Name:             product.Name,
		Slug:             product.Slug,
		ShortDescription: product.ShortDescription,
		Description:      product.Description,
		Price:            int64(product.Price),
		ComparePrice:     centsPointer(product.ComparePrice),
		Currency:         product.Currency,
		StockQuantity:    product.StockQuantity,
		StockStatus:      string(product.StockStatus),
		IsActive:         product.IsActive,
		Attributes:       product.Attributes,
		PublishedAt:      product.PublishedAt,
	}
}

type userPayload struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func buildUserPayload(user services.User) userPayload {
	return userPayload{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}

type auditLogPayload struct {
	ID        uint64         `json:"id"`
	Actor     string         `json:"actor"`
	ActorType string         `json:"actor_type"`
	Action    string         `json:"action"`
	TargetRef string         `json:"target_ref,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func buildAuditLogPayload(entry services.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		ID:        entry.ID,
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
}

func centsPointer(value *domain.Cents) *int64 {
	if value == nil {
		return nil
	}
	amount := int64(*value)
	return &amount
}
