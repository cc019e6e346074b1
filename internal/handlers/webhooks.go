package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/payments"
	"github.com/maisonmarche/storefront-api/internal/platform/httpx"
	"github.com/maisonmarche/storefront-api/internal/platform/requestctx"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const maxWebhookBodySize = 256 * 1024

// WebhookHandlers receives asynchronous provider callbacks. Stripe events are
// signature-verified before anything is parsed; the fake endpoint serves
// development and tests.
type WebhookHandlers struct {
	payments      services.PaymentService
	webhookSecret string
	tolerance     time.Duration
	clock         func() time.Time
	enableFake    bool
}

// WebhookHandlersDeps bundles constructor inputs for WebhookHandlers.
type WebhookHandlersDeps struct {
	Payments      services.PaymentService
	WebhookSecret string
	Tolerance     time.Duration
	Clock         func() time.Time
	EnableFake    bool
}

// NewWebhookHandlers constructs the webhook handler group.
func NewWebhookHandlers(deps WebhookHandlersDeps) *WebhookHandlers {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	tolerance := deps.Tolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &WebhookHandlers{
		payments:      deps.Payments,
		webhookSecret: deps.WebhookSecret,
		tolerance:     tolerance,
		clock:         clock,
		enableFake:    deps.EnableFake,
	}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripe)
	if h.enableFake {
		r.Post("/fake", h.fake)
	}
}

func (h *WebhookHandlers) stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read payload", http.StatusBadRequest))
		return
	}

	if err := payments.VerifyStripeSignature(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret, h.tolerance, h.clock()); err != nil {
		logger.Warn("stripe webhook rejected", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	}

	event, err := payments.ParseStripeEvent(payload)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to parse webhook event", http.StatusBadRequest))
		return
	}

	switch event.Type {
	case payments.StripeEventPaymentSucceeded, payments.StripeEventPaymentFailed:
	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
		writeJSONResponse(w, http.StatusOK, map[string]any{"received": true, "handled": false})
		return
	}

	cmd := services.ProviderResultCommand{
		Provider:  payments.ProviderStripe,
		Reference: event.Data.Object.ID,
		Succeeded: event.Type == payments.StripeEventPaymentSucceeded,
	}
	if lastErr := event.Data.Object.LastPaymentError; lastErr != nil {
		cmd.ErrorCode = lastErr.Code
		cmd.ErrorMessage = lastErr.Message
	}

	if _, err := h.payments.ApplyProviderResult(ctx, cmd); err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			// Unknown references are acknowledged; retrying will not help.
			logger.Warn("stripe webhook for unknown payment", zap.String("reference", cmd.Reference))
			writeJSONResponse(w, http.StatusOK, map[string]any{"received": true, "handled": false})
			return
		}
		logger.Error("stripe webhook apply failed", zap.String("reference", cmd.Reference), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "unable to apply provider result", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"received": true, "handled": true})
}

type fakeWebhookRequest struct {
	Reference    string `json:"reference"`
	Succeeded    bool   `json:"succeeded"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (h *WebhookHandlers) fake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req fakeWebhookRequest
	if err := decodeJSONBody(r, maxWebhookBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	payment, err := h.payments.ApplyProviderResult(ctx, services.ProviderResultCommand{
		Provider:     payments.ProviderFake,
		Reference:    req.Reference,
		Succeeded:    req.Succeeded,
		ErrorCode:    req.ErrorCode,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"payment": buildPaymentPayload(payment)})
}
