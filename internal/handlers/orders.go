package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/platform/pagination"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const maxOrderBodySize = 16 * 1024

// OrderHandlers exposes the customer-facing order endpoints. Admin-only
// workflow steps live under AdminHandlers.
type OrderHandlers struct {
	orders   services.OrderService
	payments services.PaymentService
	returns  services.ReturnService
}

// NewOrderHandlers constructs handlers backed by the order, payment, and
// return services.
func NewOrderHandlers(orders services.OrderService, payments services.PaymentService, returns services.ReturnService) *OrderHandlers {
	return &OrderHandlers{orders: orders, payments: payments, returns: returns}
}

// Routes wires the /orders endpoints onto the provided router. The router
// group must already enforce authentication.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Post("/{orderID}/payments", h.initiatePayment)
	r.Get("/{orderID}/payments", h.listPayments)
	r.Post("/{orderID}/returns", h.requestReturn)
}

type createOrderRequest struct {
	ShippingAddressID uint64 `json:"shipping_address_id"`
	BillingAddressID  uint64 `json:"billing_address_id"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	var req createOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CreateFromCart(ctx, services.CreateOrderCommand{
		Identity:          cartIdentityFromContext(r),
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		Actor:             actor,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		Actor:   actorFromContext(r),
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	for _, raw := range strings.Split(r.URL.Query().Get("status"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		filter.Statuses = append(filter.Statuses, domain.OrderStatus(raw))
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders": items,
		"meta":   buildPageMeta(page),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	order, err := h.orders.GetOrder(ctx, orderID, actorFromContext(r))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req cancelOrderRequest
	if body, bodyErr := readLimitedBody(r, maxOrderBodySize); bodyErr == nil {
		if err := decodeJSON(body, &req); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		Reason:  req.Reason,
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type initiatePaymentRequest struct {
	Provider string `json:"provider"`
}

func (h *OrderHandlers) initiatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req initiatePaymentRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	payment, err := h.payments.InitiatePayment(ctx, services.InitiatePaymentCommand{
		OrderID:  orderID,
		Provider: req.Provider,
		Actor:    actorFromContext(r),
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"payment": buildPaymentPayload(payment)})
}

func (h *OrderHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	payments, err := h.payments.ListPayments(ctx, orderID, actorFromContext(r))
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	payload := make([]paymentPayload, 0, len(payments))
	for _, payment := range payments {
		payload = append(payload, buildPaymentPayload(payment))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"payments": payload})
}

type requestReturnRequest struct {
	Reason      string              `json:"reason"`
	Description string              `json:"description"`
	Items       []domain.ReturnItem `json:"items"`
}

func (h *OrderHandlers) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req requestReturnRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	ret, err := h.returns.RequestReturn(ctx, services.RequestReturnCommand{
		OrderID:     orderID,
		Reason:      req.Reason,
		Description: req.Description,
		Items:       req.Items,
		Actor:       actorFromContext(r),
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"return": buildReturnPayload(ret)})
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no items", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderCartNotActive):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_active", "cart was already ordered", http.StatusConflict))
	case errors.Is(err, services.ErrCartInsufficientStock), errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order changed concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "no active cart for identity", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "order operation failed", http.StatusInternalServerError))
	}
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentOrderNotPayable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_payable", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentForbidden), errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
	case errors.Is(err, services.ErrPaymentNotFound), errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment or order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "payment operation failed", http.StatusInternalServerError))
	}
}

func writeReturnError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrReturnInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReturnOrderNotReturnable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_returnable", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrReturnInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_return_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrReturnForbidden), errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "return belongs to another user", http.StatusForbidden))
	case errors.Is(err, services.ErrReturnNotFound), errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("return_not_found", "return or order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("return_error", "return operation failed", http.StatusInternalServerError))
	}
}
