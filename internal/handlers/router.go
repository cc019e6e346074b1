package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/platform/metrics"
)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 60 * time.Second
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Authn    *auth.Authenticator
	Auth     *AuthHandlers
	Catalog  *CatalogHandlers
	Cart     *CartHandlers
	Orders   *OrderHandlers
	Returns  *ReturnHandlers
	Me       *MeHandlers
	Admin    *AdminHandlers
	Webhooks *WebhookHandlers

	// Middlewares run globally, after chi's built-ins.
	Middlewares []func(http.Handler) http.Handler
	// OrderWriteMiddlewares guard mutating order and payment endpoints,
	// e.g. idempotency-key deduplication.
	OrderWriteMiddlewares []func(http.Handler) http.Handler
}

// NewRouter constructs the chi router with shared middleware and all route groups.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(defaultTimeout))
	r.Use(metrics.Middleware())
	for _, mw := range deps.Middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route(defaultAPIPrefix, func(api chi.Router) {
		if deps.Auth != nil {
			api.Route("/auth", deps.Auth.Routes)
		}
		if deps.Catalog != nil {
			api.Route("/products", deps.Catalog.Routes)
		}
		if deps.Cart != nil {
			api.Route("/cart", func(group chi.Router) {
				if deps.Authn != nil {
					group.Use(deps.Authn.OptionalAuth())
				}
				deps.Cart.Routes(group)
			})
		}
		if deps.Orders != nil {
			api.Route("/orders", func(group chi.Router) {
				if deps.Authn != nil {
					group.Use(deps.Authn.RequireAuth())
				}
				for _, mw := range deps.OrderWriteMiddlewares {
					if mw != nil {
						group.Use(mw)
					}
				}
				deps.Orders.Routes(group)
			})
		}
		if deps.Returns != nil {
			api.Route("/returns", func(group chi.Router) {
				if deps.Authn != nil {
					group.Use(deps.Authn.RequireAuth())
				}
				deps.Returns.Routes(group)
			})
		}
		if deps.Me != nil {
			api.Route("/me", func(group chi.Router) {
				if deps.Authn != nil {
					group.Use(deps.Authn.RequireAuth())
				}
				deps.Me.Routes(group)
			})
		}
		if deps.Admin != nil {
			api.Route("/admin", func(group chi.Router) {
				if deps.Authn != nil {
					group.Use(deps.Authn.RequireAuth(auth.RoleAdmin))
				}
				deps.Admin.Routes(group)
			})
		}
		if deps.Webhooks != nil {
			api.Route("/webhooks", deps.Webhooks.Routes)
		}
	})

	return r
}
