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

const maxAdminBodySize = 64 * 1024

// AdminHandlers groups the back-office surface: catalogue writes, the stock
// ledger, order workflow steps, return decisions, and operational reads.
type AdminHandlers struct {
	catalog   services.CatalogService
	inventory services.InventoryService
	orders    services.OrderService
	returns   services.ReturnService
	system    services.SystemService
}

// NewAdminHandlers constructs the back-office handler group.
func NewAdminHandlers(
	catalog services.CatalogService,
	inventory services.InventoryService,
	orders services.OrderService,
	returns services.ReturnService,
	system services.SystemService,
) *AdminHandlers {
	return &AdminHandlers{
		catalog:   catalog,
		inventory: inventory,
		orders:    orders,
		returns:   returns,
		system:    system,
	}
}

// Routes wires the /admin endpoints onto the provided router. The router group
// must already enforce admin authentication.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
	r.Post("/products/{productID}/variants", h.createVariant)
	r.Put("/variants/{variantID}", h.updateVariant)
	r.Delete("/variants/{variantID}", h.deleteVariant)

	r.Post("/stock/sync", h.syncStock)
	r.Get("/stock/movements", h.listMovements)
	r.Get("/stock/movements/{movementID}", h.getMovement)

	r.Get("/orders/{orderID}/transitions", h.listTransitions)
	r.Post("/orders/{orderID}/transition", h.transitionOrder)
	r.Post("/orders/{orderID}/tracking", h.setTracking)
	r.Post("/orders/{orderID}/delivered", h.markDelivered)

	r.Post("/returns/{returnID}/approve", h.approveReturn)
	r.Post("/returns/{returnID}/reject", h.rejectReturn)
	r.Post("/returns/{returnID}/received", h.markReturnReceived)
	r.Post("/returns/{returnID}/refund", h.refundReturn)

	r.Get("/system/health", h.systemHealth)
	r.Get("/audit-logs", h.listAuditLogs)
}

// Catalogue ------------------------------------------------------------------

type saveProductRequest struct {
	CategoryID       *uint64        `json:"category_id"`
	Type             string         `json:"type"`
	SKU              string         `json:"sku"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	ShortDescription string         `json:"short_description"`
	Description      string         `json:"description"`
	Price            int64          `json:"price"`
	ComparePrice     *int64         `json:"compare_price"`
	Currency         string         `json:"currency"`
	StockQuantity    int64          `json:"stock_quantity"`
	StockStatus      string         `json:"stock_status"`
	IsActive         bool           `json:"is_active"`
	Attributes       map[string]any `json:"attributes"`
}

func (req saveProductRequest) toProduct(productID uint64) services.Product {
	return services.Product{
		ID:               productID,
		CategoryID:       req.CategoryID,
		Type:             domain.ProductType(req.Type),
		SKU:              req.SKU,
		Name:             req.Name,
		Slug:             req.Slug,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Price:            domain.Cents(req.Price),
		ComparePrice:     centsFromPointer(req.ComparePrice),
		Currency:         req.Currency,
		StockQuantity:    req.StockQuantity,
		StockStatus:      domain.StockStatus(req.StockStatus),
		IsActive:         req.IsActive,
		Attributes:       req.Attributes,
	}
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveProductRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	product, err := h.catalog.CreateProduct(ctx, services.SaveProductCommand{
		Product: req.toProduct(0),
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"product": buildProductPayload(product)})
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req saveProductRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	product, err := h.catalog.UpdateProduct(ctx, services.SaveProductCommand{
		Product: req.toProduct(productID),
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if err := h.catalog.DeleteProduct(ctx, productID, actorFromContext(r)); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveVariantRequest struct {
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	Price         int64          `json:"price"`
	ComparePrice  *int64         `json:"compare_price"`
	Currency      string         `json:"currency"`
	StockQuantity int64          `json:"stock_quantity"`
	StockStatus   string         `json:"stock_status"`
	IsActive      bool           `json:"is_active"`
	Attributes    map[string]any `json:"attributes"`
}

func (req saveVariantRequest) toVariant(variantID, productID uint64) services.ProductVariant {
	return services.ProductVariant{
		ID:            variantID,
		ProductID:     productID,
		SKU:           req.SKU,
		Name:          req.Name,
		Price:         domain.Cents(req.Price),
		ComparePrice:  centsFromPointer(req.ComparePrice),
		Currency:      req.Currency,
		StockQuantity: req.StockQuantity,
		StockStatus:   domain.StockStatus(req.StockStatus),
		IsActive:      req.IsActive,
		Attributes:    req.Attributes,
	}
}

func (h *AdminHandlers) createVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req saveVariantRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	variant, err := h.catalog.CreateVariant(ctx, services.SaveVariantCommand{
		Variant: req.toVariant(0, productID),
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"variant": buildVariantPayload(variant)})
}

func (h *AdminHandlers) updateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variantID, err := parseIDParam(r, "variantID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req struct {
		saveVariantRequest
		ProductID uint64 `json:"product_id"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	variant, err := h.catalog.UpdateVariant(ctx, services.SaveVariantCommand{
		Variant: req.toVariant(variantID, req.ProductID),
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"variant": buildVariantPayload(variant)})
}

func (h *AdminHandlers) deleteVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variantID, err := parseIDParam(r, "variantID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if err := h.catalog.DeleteVariant(ctx, variantID, actorFromContext(r)); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stock ledger ---------------------------------------------------------------

type syncStockRequest struct {
	Kind           string         `json:"kind"`
	ID             uint64         `json:"id"`
	Quantity       int64          `json:"quantity"`
	OverrideStatus string         `json:"override_status"`
	Reason         string         `json:"reason"`
	Description    string         `json:"description"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *AdminHandlers) syncStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req syncStockRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	kind, err := domain.ParsePurchasableKind(req.Kind)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.inventory.SyncStock(ctx, services.SyncStockCommand{
		Ref:            domain.PurchasableRef{Kind: kind, ID: req.ID},
		Quantity:       req.Quantity,
		OverrideStatus: domain.StockStatus(req.OverrideStatus),
		Reason:         req.Reason,
		Description:    req.Description,
		Metadata:       req.Metadata,
		Actor:          actorFromContext(r),
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	payload := map[string]any{
		"no_op":    result.NoOp,
		"quantity": result.Quantity,
		"status":   string(result.Status),
	}
	if !result.NoOp {
		payload["movement"] = buildMovementPayload(result.Movement)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminHandlers) listMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.MovementListFilter{
		Reason:  strings.TrimSpace(r.URL.Query().Get("reason")),
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if rawKind := r.URL.Query().Get("kind"); strings.TrimSpace(rawKind) != "" {
		kind, err := domain.ParsePurchasableKind(rawKind)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		id, err := parseQueryID(r, "id")
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		filter.Stockable = &domain.PurchasableRef{Kind: kind, ID: id}
	}

	page, err := h.inventory.ListMovements(ctx, filter)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}
	items := make([]movementPayload, 0, len(page.Items))
	for _, movement := range page.Items {
		items = append(items, buildMovementPayload(movement))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"movements": items,
		"meta":      buildPageMeta(page),
	})
}

func (h *AdminHandlers) getMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movementID, err := parseIDParam(r, "movementID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	movement, err := h.inventory.GetMovement(ctx, movementID)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"movement": buildMovementPayload(movement)})
}

// Order workflow -------------------------------------------------------------

func (h *AdminHandlers) listTransitions(w http.ResponseWriter, r *http.Request) {
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

	allowed := domain.AllowedTransitions(order.Status)
	next := make([]string, 0, len(allowed))
	for _, status := range allowed {
		next = append(next, string(status))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":      string(order.Status),
		"transitions": next,
	})
}

type transitionOrderRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *AdminHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req transitionOrderRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.TransitionOrderCommand{
		OrderID: orderID,
		Next:    domain.OrderStatus(strings.TrimSpace(req.Status)),
		Reason:  req.Reason,
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type setTrackingRequest struct {
	Number  string `json:"number"`
	Carrier string `json:"carrier"`
	URL     string `json:"url"`
}

func (h *AdminHandlers) setTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req setTrackingRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.SetTracking(ctx, services.SetTrackingCommand{
		OrderID: orderID,
		Number:  req.Number,
		Carrier: req.Carrier,
		URL:     req.URL,
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) markDelivered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	order, err := h.orders.MarkDelivered(ctx, services.MarkDeliveredCommand{
		OrderID: orderID,
		Actor:   actorFromContext(r),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

// Return workflow ------------------------------------------------------------

type returnDecisionRequest struct {
	Note string `json:"note"`
}

func (h *AdminHandlers) approveReturn(w http.ResponseWriter, r *http.Request) {
	h.decideReturn(w, r, h.returns.Approve)
}

func (h *AdminHandlers) rejectReturn(w http.ResponseWriter, r *http.Request) {
	h.decideReturn(w, r, h.returns.Reject)
}

func (h *AdminHandlers) decideReturn(w http.ResponseWriter, r *http.Request, decide func(context.Context, services.ReturnDecisionCommand) (services.OrderReturn, error)) {
	ctx := r.Context()

	returnID, err := parseIDParam(r, "returnID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req returnDecisionRequest
	if body, bodyErr := readLimitedBody(r, maxAdminBodySize); bodyErr == nil {
		if err := decodeJSON(body, &req); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
	}

	ret, err := decide(ctx, services.ReturnDecisionCommand{
		ReturnID: returnID,
		Note:     req.Note,
		Actor:    actorFromContext(r),
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"return": buildReturnPayload(ret)})
}

type returnReceivedRequest struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCarrier string `json:"tracking_carrier"`
}

func (h *AdminHandlers) markReturnReceived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	returnID, err := parseIDParam(r, "returnID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req returnReceivedRequest
	if body, bodyErr := readLimitedBody(r, maxAdminBodySize); bodyErr == nil {
		if err := decodeJSON(body, &req); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
	}

	ret, err := h.returns.MarkReceived(ctx, services.ReturnReceivedCommand{
		ReturnID:        returnID,
		TrackingNumber:  req.TrackingNumber,
		TrackingCarrier: req.TrackingCarrier,
		Actor:           actorFromContext(r),
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"return": buildReturnPayload(ret)})
}

type refundReturnRequest struct {
	Amount *int64 `json:"amount"`
}

func (h *AdminHandlers) refundReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	returnID, err := parseIDParam(r, "returnID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req refundReturnRequest
	if body, bodyErr := readLimitedBody(r, maxAdminBodySize); bodyErr == nil {
		if err := decodeJSON(body, &req); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
	}

	ret, err := h.returns.Refund(ctx, services.ReturnRefundCommand{
		ReturnID: returnID,
		Amount:   centsFromPointer(req.Amount),
		Actor:    actorFromContext(r),
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"return": buildReturnPayload(ret)})
}

// Operational reads ----------------------------------------------------------

func (h *AdminHandlers) systemHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_unavailable", "health report failed", http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{
			"status":     string(check.Status),
			"latency_ms": check.Latency.Milliseconds(),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Error != "" {
			entry["error"] = check.Error
		}
		checks[name] = entry
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":       string(report.Status),
		"checks":       checks,
		"generated_at": report.GeneratedAt,
	})
}

func (h *AdminHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.system.ListAuditLogs(ctx, services.AuditLogFilter{
		Actor:     r.URL.Query().Get("actor"),
		Action:    r.URL.Query().Get("action"),
		TargetRef: r.URL.Query().Get("target_ref"),
		Page:      params.Page,
		PerPage:   params.PerPage,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_log_error", "audit log listing failed", http.StatusInternalServerError))
		return
	}
	items := make([]auditLogPayload, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, buildAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"audit_logs": items,
		"meta":       buildPageMeta(page),
	})
}

func writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInventoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("stock_not_found", "stockable or movement not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "inventory operation failed", http.StatusInternalServerError))
	}
}

func centsFromPointer(value *int64) *domain.Cents {
	if value == nil {
		return nil
	}
	amount := domain.Cents(*value)
	return &amount
}
