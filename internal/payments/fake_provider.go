package payments

import (
	"context"
	"fmt"
	"sync/atomic"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// FakeProvider is a deterministic in-memory provider for development and
// tests. Every intent immediately requires confirmation via the fake webhook.
type FakeProvider struct {
	counter atomic.Uint64
}

// NewFakeProvider constructs the fake provider.
func NewFakeProvider() *FakeProvider { return &FakeProvider{} }

// Name implements Provider.
func (p *FakeProvider) Name() string { return ProviderFake }

// CreateIntent issues a synthetic reference without touching any backend.
func (p *FakeProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, fmt.Errorf("fake: amount must be positive, got %d", req.Amount)
	}
	seq := p.counter.Add(1)
	return Intent{
		Provider:  ProviderFake,
		Reference: fmt.Sprintf("fake-%d-%d", req.OrderID, seq),
		Status:    domain.PaymentStatusRequiresAction,
		Metadata:  map[string]any{"sequence": seq},
	}, nil
}
