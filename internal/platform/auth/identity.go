package auth

import (
	"context"
	"strings"
)

// Role constants used throughout the API when checking authorisation boundaries.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity captures the authenticated principal extracted from an access token.
type Identity struct {
	UserID uint64
	Email  string
	Role   string
}

// HasRole reports whether the identity holds the requested role (case-insensitive).
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = normaliseRole(role)
	if role == "" {
		return false
	}
	return normaliseRole(i.Role) == role
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

type contextKey string

const (
	identityContextKey   contextKey = "github.com/maisonmarche/storefront-api/internal/platform/auth/identity"
	guestTokenContextKey contextKey = "github.com/maisonmarche/storefront-api/internal/platform/auth/guest-token"
)

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// WithGuestToken stores the guest cart token within the context.
func WithGuestToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, guestTokenContextKey, token)
}

// GuestTokenFromContext retrieves the guest cart token previously stored in context.
func GuestTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(guestTokenContextKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
