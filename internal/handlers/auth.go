package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const maxAuthBodySize = 8 * 1024

// AuthHandlers exposes account registration and credential login.
type AuthHandlers struct {
	users services.UserService
}

// NewAuthHandlers constructs handlers backed by the user service.
func NewAuthHandlers(users services.UserService) *AuthHandlers {
	return &AuthHandlers{users: users}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authResponse struct {
	User        userPayload `json:"user"`
	AccessToken string      `json:"access_token"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSONBody(r, maxAuthBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	user, token, err := h.users.Register(ctx, services.RegisterCommand{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, authResponse{User: buildUserPayload(user), AccessToken: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSONBody(r, maxAuthBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	user, token, err := h.users.Login(ctx, services.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, authResponse{User: buildUserPayload(user), AccessToken: token})
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrUserBadCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("bad_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, services.ErrUserEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "email is already registered", http.StatusConflict))
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("user_error", "account operation failed", http.StatusInternalServerError))
	}
}
