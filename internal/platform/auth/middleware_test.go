package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *TokenIssuer) {
	t.Helper()
	issuer, err := NewTokenIssuer("middleware-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return NewAuthenticator(issuer, "X-Cart-Token"), issuer
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t)

	handler := authenticator.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthAttachesIdentityAndGuestToken(t *testing.T) {
	authenticator, issuer := newTestAuthenticator(t)
	token, err := issuer.Issue(Identity{UserID: 9, Email: "u@example.com", Role: RoleCustomer})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var gotIdentity *Identity
	var gotGuest string
	handler := authenticator.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = IdentityFromContext(r.Context())
		gotGuest, _ = GuestTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Cart-Token", "guest-abc")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotIdentity == nil || gotIdentity.UserID != 9 {
		t.Fatalf("identity not propagated: %+v", gotIdentity)
	}
	if gotGuest != "guest-abc" {
		t.Fatalf("guest token = %q, want guest-abc", gotGuest)
	}
}

func TestRequireAuthEnforcesRole(t *testing.T) {
	authenticator, issuer := newTestAuthenticator(t)
	token, err := issuer.Issue(Identity{UserID: 9, Role: RoleCustomer})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := authenticator.RequireAuth(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/stock", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestOptionalAuthAllowsAnonymousGuests(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t)

	var gotGuest string
	var hasIdentity bool
	handler := authenticator.OptionalAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasIdentity = IdentityFromContext(r.Context())
		gotGuest, _ = GuestTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Cart-Token", "guest-xyz")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if hasIdentity {
		t.Fatalf("unexpected identity for anonymous request")
	}
	if gotGuest != "guest-xyz" {
		t.Fatalf("guest token = %q, want guest-xyz", gotGuest)
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	authenticator, _ := newTestAuthenticator(t)

	handler := authenticator.OptionalAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
