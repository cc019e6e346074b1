package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const defaultMaxBodySize = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeJSONBody(r *http.Request, limit int64, dst any) error {
	data, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	return decodeJSON(data, dst)
}

func decodeJSON(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func parseQueryID(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// actorFromContext derives the service-layer actor from the authenticated
// identity, if any.
func actorFromContext(r *http.Request) services.Actor {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || identity.UserID == 0 {
		return services.Actor{}
	}
	userID := identity.UserID
	return services.Actor{
		UserID: &userID,
		Role:   services.UserRole(strings.ToLower(identity.Role)),
		Label:  identity.Email,
	}
}

// cartIdentityFromContext combines the authenticated user (when present) with
// the guest cart token header so a login can merge the guest cart.
func cartIdentityFromContext(r *http.Request) services.CartIdentity {
	identity := services.CartIdentity{}
	if authed, ok := auth.IdentityFromContext(r.Context()); ok && authed != nil && authed.UserID != 0 {
		userID := authed.UserID
		identity.UserID = &userID
	}
	if token, ok := auth.GuestTokenFromContext(r.Context()); ok {
		identity.GuestToken = strings.TrimSpace(token)
	}
	return identity
}
