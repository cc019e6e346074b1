package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Intents  stripePaymentIntentAPI
}

// StripeProvider implements Provider on top of Stripe PaymentIntents.
type StripeProvider struct {
	intents stripePaymentIntentAPI
	logger  StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{intents: intents, logger: logger}, nil
}

// Name implements Provider.
func (p *StripeProvider) Name() string { return ProviderStripe }

// CreateIntent starts a Stripe PaymentIntent for the order amount. The intent
// reference is what later webhook events carry.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, fmt.Errorf("stripe: amount must be positive, got %d", req.Amount)
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return Intent{}, errors.New("stripe: currency is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(req.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}
	params.AddMetadata("order_id", strconv.FormatUint(req.OrderID, 10))
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		p.logger(ctx, "stripe.intent.failed", map[string]any{
			"order_id": req.OrderID,
			"error":    err.Error(),
		})
		return Intent{}, fmt.Errorf("stripe: create intent: %w", err)
	}

	p.logger(ctx, "stripe.intent.created", map[string]any{
		"order_id": req.OrderID,
		"intent":   intent.ID,
	})
	return Intent{
		Provider:     ProviderStripe,
		Reference:    intent.ID,
		Status:       domain.PaymentStatusRequiresAction,
		ClientSecret: intent.ClientSecret,
		Metadata: map[string]any{
			"stripe_status": string(intent.Status),
		},
	}, nil
}
