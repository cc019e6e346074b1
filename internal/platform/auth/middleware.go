package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// TokenVerifier verifies signed access tokens.
type TokenVerifier interface {
	Verify(tokenStr string) (*Identity, error)
}

// Authenticator wires access token verification into HTTP middleware.
type Authenticator struct {
	verifier    TokenVerifier
	guestHeader string
}

// NewAuthenticator constructs an Authenticator. guestHeader names the request
// header carrying the guest cart token.
func NewAuthenticator(verifier TokenVerifier, guestHeader string) *Authenticator {
	guestHeader = strings.TrimSpace(guestHeader)
	if guestHeader == "" {
		guestHeader = "X-Cart-Token"
	}
	return &Authenticator{verifier: verifier, guestHeader: guestHeader}
}

// RequireAuth verifies the Authorization bearer token and ensures the identity
// holds one of the allowed roles. With no roles listed, any authenticated
// identity passes.
func (a *Authenticator) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = normaliseRole(role)
		if role == "" {
			continue
		}
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if a == nil || a.verifier == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			identity, err := a.verifier.Verify(tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[normaliseRole(identity.Role)]; !ok {
					respondAuthError(w, http.StatusForbidden, "insufficient_role", "identity does not have required role")
					return
				}
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = WithGuestToken(ctx, r.Header.Get(a.guestHeader))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid bearer token is present and
// always propagates the guest cart token. Invalid tokens are rejected rather
// than silently downgraded to guest access.
func (a *Authenticator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithGuestToken(r.Context(), r.Header.Get(a.guestHeader))

			if tokenStr, ok := extractBearerToken(r.Header.Get("Authorization")); ok && a != nil && a.verifier != nil {
				identity, err := a.verifier.Verify(tokenStr)
				if err != nil {
					respondVerificationError(w, err)
					return
				}
				ctx = WithIdentity(ctx, identity)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}

func respondVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		respondAuthError(w, http.StatusUnauthorized, "token_expired", "access token expired")
	default:
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "access token invalid")
	}
}
