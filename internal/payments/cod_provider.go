package payments

import (
	"context"
	"fmt"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
)

// CODProvider handles cash-on-delivery orders. No external call happens; the
// payment settles when the courier collects.
type CODProvider struct{}

// NewCODProvider constructs the cash-on-delivery provider.
func NewCODProvider() *CODProvider { return &CODProvider{} }

// Name implements Provider.
func (p *CODProvider) Name() string { return ProviderCOD }

// CreateIntent records the attempt as pending collection on delivery.
func (p *CODProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, fmt.Errorf("cod: amount must be positive, got %d", req.Amount)
	}
	return Intent{
		Provider:  ProviderCOD,
		Reference: fmt.Sprintf("cod-%d", req.OrderID),
		Status:    domain.PaymentStatusPendingCOD,
	}, nil
}
