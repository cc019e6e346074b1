package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/events"
	"github.com/maisonmarche/storefront-api/internal/platform/broker"
	"github.com/maisonmarche/storefront-api/internal/services"
)

const (
	queueName   = "notifications.order_status"
	consumerTag = "storefront-notifications"
)

// Notifier delivers a customer-facing notification for an order transition.
type Notifier interface {
	NotifyOrderStatusChanged(ctx context.Context, event services.OrderStatusChangedEvent) error
}

// Consumer binds the order status queue and forwards events to a Notifier.
// Malformed payloads are acked and dropped; notifier failures are nacked
// without requeue, so a failed notification is logged and lost rather than
// retried.
type Consumer struct {
	broker   *broker.Broker
	notifier Notifier
	logger   *zap.Logger
}

// NewConsumer sets up the consumer. Start must be called to begin consuming.
func NewConsumer(b *broker.Broker, notifier Notifier, logger *zap.Logger) (*Consumer, error) {
	if b == nil {
		return nil, fmt.Errorf("notifications: broker is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifications: notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{broker: b, notifier: notifier, logger: logger}, nil
}

// Start declares the queue bound to order status events and begins consuming.
func (c *Consumer) Start() error {
	queue, err := c.broker.DeclareQueue(queueName, events.RoutingKeyOrderStatusChanged)
	if err != nil {
		return fmt.Errorf("notifications: declare queue: %w", err)
	}
	if err := c.broker.Consume(queue, consumerTag, c.handle); err != nil {
		return fmt.Errorf("notifications: start consumer: %w", err)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) error {
	var event services.OrderStatusChangedEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		// Undecodable payloads would loop forever on requeue; ack and move on.
		c.logger.Warn("dropping malformed order event",
			zap.String("routing_key", delivery.RoutingKey),
			zap.Error(err),
		)
		return nil
	}
	if event.OrderID == 0 {
		c.logger.Warn("dropping order event without order id",
			zap.String("routing_key", delivery.RoutingKey),
		)
		return nil
	}

	if err := c.notifier.NotifyOrderStatusChanged(ctx, event); err != nil {
		return fmt.Errorf("notify order %d: %w", event.OrderID, err)
	}
	return nil
}
