package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// Provider names accepted by the resolver.
const (
	ProviderStripe = "stripe"
	ProviderCOD    = "cod"
	ProviderFake   = "fake"
)

// ErrUnsupportedProvider is returned when the resolver cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// IntentRequest captures the payload required to start a payment attempt.
type IntentRequest struct {
	OrderID        uint64
	Amount         domain.Cents
	Currency       string
	CustomerEmail  string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is the normalised provider response for a started payment attempt.
type Intent struct {
	Provider     string
	Reference    string
	Status       domain.PaymentStatus
	ClientSecret string
	CheckoutURL  string
	Metadata     map[string]any
}

// Provider starts payment attempts against one payment backend.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// Resolver maps provider names onto registered providers, enforcing an
// allow-list so unknown names fail fast.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver registers the given providers by name.
func NewResolver(providers ...Provider) (*Resolver, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("payments: nil provider")
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, errors.New("payments: provider with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("payments: duplicate provider %q", name)
		}
		byName[name] = p
	}
	return &Resolver{providers: byName}, nil
}

// Resolve returns the provider registered under name.
func (r *Resolver) Resolve(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Names lists the registered provider names.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
