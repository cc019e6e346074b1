package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const maxAddressBodySize = 16 * 1024

// MeHandlers exposes the authenticated user's profile and address book.
type MeHandlers struct {
	users services.UserService
}

// NewMeHandlers constructs handlers backed by the user service.
func NewMeHandlers(users services.UserService) *MeHandlers {
	return &MeHandlers{users: users}
}

// Routes wires the /me endpoints onto the provided router. The router group
// must already enforce authentication.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.profile)
	r.Get("/addresses", h.listAddresses)
	r.Post("/addresses", h.createAddress)
	r.Get("/addresses/{addressID}", h.getAddress)
	r.Put("/addresses/{addressID}", h.updateAddress)
	r.Delete("/addresses/{addressID}", h.deleteAddress)
}

func (h *MeHandlers) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	user, err := h.users.GetUser(ctx, *actor.UserID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"user": buildUserPayload(user)})
}

func (h *MeHandlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	addresses, err := h.users.ListAddresses(ctx, *actor.UserID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	payload := make([]addressPayload, 0, len(addresses))
	for _, addr := range addresses {
		payload = append(payload, buildAddressPayload(addr))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"addresses": payload})
}

func (h *MeHandlers) getAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	addressID, err := parseIDParam(r, "addressID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	addr, err := h.users.GetAddress(ctx, *actor.UserID, addressID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"address": buildAddressPayload(addr)})
}

func (h *MeHandlers) createAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	var req addressPayload
	if err := decodeJSONBody(r, maxAddressBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	addr, err := h.users.CreateAddress(ctx, services.SaveAddressCommand{Address: addressFromPayload(req, *actor.UserID, 0)})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"address": buildAddressPayload(addr)})
}

func (h *MeHandlers) updateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	addressID, err := parseIDParam(r, "addressID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req addressPayload
	if err := decodeJSONBody(r, maxAddressBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	addr, err := h.users.UpdateAddress(ctx, services.SaveAddressCommand{Address: addressFromPayload(req, *actor.UserID, addressID)})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"address": buildAddressPayload(addr)})
}

func (h *MeHandlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor := actorFromContext(r)
	if actor.UserID == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	addressID, err := parseIDParam(r, "addressID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if err := h.users.DeleteAddress(ctx, *actor.UserID, addressID); err != nil {
		writeUserError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func addressFromPayload(req addressPayload, userID, addressID uint64) services.Address {
	return services.Address{
		ID:          addressID,
		UserID:      userID,
		Label:       req.Label,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Company:     req.Company,
		Phone:       req.Phone,
		Line1:       req.Line1,
		Line2:       req.Line2,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		CountryCode: req.CountryCode,
	}
}
