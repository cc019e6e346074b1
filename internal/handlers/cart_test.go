package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/services"
)

func newCartRouter(t *testing.T, carts services.CartService) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/cart", NewCartHandlers(carts).Routes)
	return r
}

func guestRequest(method, target, token string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if token != "" {
		req = req.WithContext(auth.WithGuestToken(req.Context(), token))
	}
	return req
}

func userRequest(method, target string, userID uint64, role string, body string) *http.Request {
	req := guestRequest(method, target, "", body)
	identity := &auth.Identity{UserID: userID, Email: "user@example.com", Role: role}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func TestCartHandlersGetCart(t *testing.T) {
	var gotIdentity services.CartIdentity
	carts := &stubCartService{
		getOrCreateFunc: func(ctx context.Context, identity services.CartIdentity) (services.Cart, error) {
			gotIdentity = identity
			return domain.Cart{
				ID:       5,
				Currency: "USD",
				Status:   domain.CartStatusActive,
				Items: []domain.CartItem{
					{ID: 77, Purchasable: domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 1}, Quantity: 2, UnitPrice: 1999, Currency: "USD"},
				},
			}, nil
		},
	}

	router := newCartRouter(t, carts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodGet, "/cart", "guest-token-1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotIdentity.GuestToken != "guest-token-1" {
		t.Fatalf("expected guest token propagated, got %q", gotIdentity.GuestToken)
	}

	var payload struct {
		Cart struct {
			ID    uint64 `json:"id"`
			Items []struct {
				Quantity  int64 `json:"quantity"`
				UnitPrice int64 `json:"unit_price"`
			} `json:"items"`
		} `json:"cart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if payload.Cart.ID != 5 || len(payload.Cart.Items) != 1 || payload.Cart.Items[0].UnitPrice != 1999 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestCartHandlersAddItem(t *testing.T) {
	var gotCmd services.AddCartItemCommand
	carts := &stubCartService{
		addItemFunc: func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
			gotCmd = cmd
			return domain.Cart{ID: 5, Currency: "USD", Status: domain.CartStatusActive}, nil
		},
	}

	router := newCartRouter(t, carts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/cart/items", 1, "customer", `{"kind":"product","id":3,"quantity":2}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.Ref.Kind != domain.PurchasableProduct || gotCmd.Ref.ID != 3 || gotCmd.Quantity != 2 {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	if gotCmd.Identity.UserID == nil || *gotCmd.Identity.UserID != 1 {
		t.Fatalf("expected user identity from token, got %+v", gotCmd.Identity)
	}
}

func TestCartHandlersAddItemRejectsUnknownKind(t *testing.T) {
	router := newCartRouter(t, &stubCartService{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodPost, "/cart/items", "g", `{"kind":"bundle","id":3,"quantity":1}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCartHandlersAddItemInsufficientStock(t *testing.T) {
	carts := &stubCartService{
		addItemFunc: func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartInsufficientStock
		},
	}

	router := newCartRouter(t, carts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodPost, "/cart/items", "g", `{"kind":"product","id":3,"quantity":99}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, rec.Body.Bytes(), "insufficient_stock")
}

func TestCartHandlersUpdateItemQuantity(t *testing.T) {
	var gotCmd services.UpdateCartItemCommand
	carts := &stubCartService{
		updateItemFunc: func(ctx context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error) {
			gotCmd = cmd
			return domain.Cart{ID: 5, Currency: "USD", Status: domain.CartStatusActive}, nil
		},
	}

	router := newCartRouter(t, carts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodPatch, "/cart/items/77", "g", `{"quantity":0}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ItemID != 77 || gotCmd.Quantity != 0 {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestCartHandlersRemoveItemNotFound(t *testing.T) {
	carts := &stubCartService{
		removeItemFunc: func(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartNotFound
		},
	}

	router := newCartRouter(t, carts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodDelete, "/cart/items/99", "g", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCartHandlersBadItemID(t *testing.T) {
	router := newCartRouter(t, &stubCartService{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodDelete, "/cart/items/abc", "g", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func assertErrorCode(t *testing.T, body []byte, expected string) {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if payload.Error != expected {
		t.Fatalf("expected error code %q, got %q", expected, payload.Error)
	}
}

type stubCartService struct {
	getOrCreateFunc func(ctx context.Context, identity services.CartIdentity) (services.Cart, error)
	addItemFunc     func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error)
	updateItemFunc  func(ctx context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error)
	removeItemFunc  func(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error)
	clearFunc       func(ctx context.Context, identity services.CartIdentity) (services.Cart, error)
}

func (s *stubCartService) GetOrCreateCart(ctx context.Context, identity services.CartIdentity) (services.Cart, error) {
	if s.getOrCreateFunc != nil {
		return s.getOrCreateFunc(ctx, identity)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	if s.addItemFunc != nil {
		return s.addItemFunc(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error) {
	if s.updateItemFunc != nil {
		return s.updateItemFunc(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, cmd services.RemoveCartItemCommand) (services.Cart, error) {
	if s.removeItemFunc != nil {
		return s.removeItemFunc(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) ClearCart(ctx context.Context, identity services.CartIdentity) (services.Cart, error) {
	if s.clearFunc != nil {
		return s.clearFunc(ctx, identity)
	}
	return services.Cart{}, nil
}
