package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const webhookTestSecret = "whsec_test"

func newWebhookRouter(t *testing.T, payments services.PaymentService, now time.Time) chi.Router {
	t.Helper()
	handlers := NewWebhookHandlers(WebhookHandlersDeps{
		Payments:      payments,
		WebhookSecret: webhookTestSecret,
		Tolerance:     5 * time.Minute,
		Clock:         func() time.Time { return now },
		EnableFake:    true,
	})
	r := chi.NewRouter()
	r.Route("/webhooks", handlers.Routes)
	return r
}

func stripeSignature(payload []byte, signedAt time.Time) string {
	timestamp := strconv.FormatInt(signedAt.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookHandlersStripeSucceeded(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	var gotCmd services.ProviderResultCommand
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			gotCmd = cmd
			return domain.Payment{ID: 9, Status: domain.PaymentStatusSucceeded}, nil
		},
	}

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","status":"succeeded"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, now))

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !gotCmd.Succeeded || gotCmd.Reference != "pi_123" || gotCmd.Provider != "stripe" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestWebhookHandlersStripeFailureCarriesErrorDetails(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	var gotCmd services.ProviderResultCommand
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			gotCmd = cmd
			return domain.Payment{ID: 9, Status: domain.PaymentStatusFailed}, nil
		},
	}

	payload := []byte(`{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_123","last_payment_error":{"code":"card_declined","message":"declined"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, now))

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.Succeeded || gotCmd.ErrorCode != "card_declined" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestWebhookHandlersStripeRejectsBadSignature(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	applied := false
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			applied = true
			return services.Payment{}, nil
		},
	}

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1767344400,v1=deadbeef")

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if applied {
		t.Fatal("expected provider result to be rejected before application")
	}
}

func TestWebhookHandlersStripeIgnoresUnhandledEventTypes(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	applied := false
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			applied = true
			return services.Payment{}, nil
		},
	}

	payload := []byte(`{"id":"evt_3","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, now))

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if applied {
		t.Fatal("expected unhandled event type to be acknowledged without application")
	}
}

func TestWebhookHandlersStripeUnknownReferenceAcknowledged(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			return services.Payment{}, services.ErrPaymentNotFound
		},
	}

	payload := []byte(`{"id":"evt_4","type":"payment_intent.succeeded","data":{"object":{"id":"pi_unknown"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, now))

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWebhookHandlersFake(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	var gotCmd services.ProviderResultCommand
	payments := &stubPaymentService{
		applyFunc: func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
			gotCmd = cmd
			return domain.Payment{ID: 9, Status: domain.PaymentStatusSucceeded}, nil
		},
	}

	router := newWebhookRouter(t, payments, now)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/fake", strings.NewReader(`{"reference":"fake-55-1","succeeded":true}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.Provider != "fake" || gotCmd.Reference != "fake-55-1" || !gotCmd.Succeeded {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}
