package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/platform/pagination"
	"github.com/maisonmarche/storefront-api/internal/services"
)

// ReturnHandlers exposes the customer's view of return requests.
type ReturnHandlers struct {
	returns services.ReturnService
}

// NewReturnHandlers constructs handlers backed by the return service.
func NewReturnHandlers(returns services.ReturnService) *ReturnHandlers {
	return &ReturnHandlers{returns: returns}
}

// Routes wires the /returns endpoints onto the provided router. The router
// group must already enforce authentication.
func (h *ReturnHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listReturns)
	r.Get("/{returnID}", h.getReturn)
}

func (h *ReturnHandlers) listReturns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ReturnListFilter{
		Actor:   actorFromContext(r),
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	for _, raw := range strings.Split(r.URL.Query().Get("status"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		filter.Statuses = append(filter.Statuses, domain.ReturnStatus(raw))
	}

	page, err := h.returns.ListReturns(ctx, filter)
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	items := make([]returnPayload, 0, len(page.Items))
	for _, ret := range page.Items {
		items = append(items, buildReturnPayload(ret))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"returns": items,
		"meta":    buildPageMeta(page),
	})
}

func (h *ReturnHandlers) getReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	returnID, err := parseIDParam(r, "returnID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	ret, err := h.returns.GetReturn(ctx, returnID, actorFromContext(r))
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"return": buildReturnPayload(ret)})
}
