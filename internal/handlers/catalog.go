package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/platform/pagination"
	"github.com/maisonmarche/storefront-api/internal/services"
)

// CatalogHandlers exposes public product browsing endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs handlers backed by the catalog service.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
	r.Get("/slug/{slug}", h.getProductBySlug)
	r.Get("/{productID}/variants", h.listVariants)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProductListFilter{
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: true,
		Page:       params.Page,
		PerPage:    params.PerPage,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "category_id must be a positive integer", http.StatusBadRequest))
			return
		}
		filter.CategoryID = &categoryID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		productType := domain.ProductType(raw)
		filter.Type = &productType
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products": items,
		"meta":     buildPageMeta(page),
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *CatalogHandlers) getProductBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := h.catalog.GetProductBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *CatalogHandlers) listVariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	variants, err := h.catalog.ListVariants(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	payload := make([]variantPayload, 0, len(variants))
	for _, variant := range variants {
		payload = append(payload, buildVariantPayload(variant))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"variants": payload})
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "operation requires back-office privileges", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalogue operation failed", http.StatusInternalServerError))
	}
}
