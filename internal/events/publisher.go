package events

import (
	"context"
	"fmt"

	"github.com/maisonmarche/storefront-api/internal/services"
)

// RoutingKeyOrderStatusChanged is the topic under which order transitions are
// published on the domain event exchange.
const RoutingKeyOrderStatusChanged = "order.status_changed"

// JSONPublisher is the subset of the broker used to emit domain events.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

type orderEventPublisher struct {
	broker JSONPublisher
}

// NewOrderEventPublisher wraps a broker connection as an order event sink.
func NewOrderEventPublisher(broker JSONPublisher) (services.OrderEventPublisher, error) {
	if broker == nil {
		return nil, fmt.Errorf("order event publisher: broker is required")
	}
	return &orderEventPublisher{broker: broker}, nil
}

func (p *orderEventPublisher) PublishStatusChanged(ctx context.Context, event services.OrderStatusChangedEvent) error {
	if err := p.broker.PublishJSON(ctx, RoutingKeyOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order status change: %w", err)
	}
	return nil
}
