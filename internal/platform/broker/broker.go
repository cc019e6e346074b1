package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/platform/config"
)

// ErrClosed is returned when publishing on a closed broker.
var ErrClosed = errors.New("broker: connection closed")

// Broker wraps a RabbitMQ connection and channel bound to a durable topic
// exchange for domain events.
type Broker struct {
	cfg    config.BrokerConfig
	logger *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// Connect dials RabbitMQ and declares the configured exchange.
func Connect(cfg config.BrokerConfig, logger *zap.Logger) (*Broker, error) {
	if cfg.URL == "" {
		return nil, errors.New("broker: url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("broker: exchange is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("broker: declare exchange: %w", err)
	}

	return &Broker{cfg: cfg, logger: logger, conn: conn, ch: ch}, nil
}

// PublishJSON serialises payload and publishes it on the exchange under the
// given routing key. Messages are persistent.
func (b *Broker) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: encoding payload: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	}
	if err := b.ch.PublishWithContext(ctx, b.cfg.Exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("broker: publish %s: %w", routingKey, err)
	}
	return nil
}

// DeclareQueue declares a durable queue bound to the exchange under the given
// routing key pattern and returns its name.
func (b *Broker) DeclareQueue(name, routingKey string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrClosed
	}

	queue, err := b.ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("broker: declare queue %s: %w", name, err)
	}
	if err := b.ch.QueueBind(queue.Name, routingKey, b.cfg.Exchange, false, nil); err != nil {
		return "", fmt.Errorf("broker: bind queue %s: %w", name, err)
	}
	return queue.Name, nil
}

// Consume registers a consumer on the queue and dispatches deliveries to the
// handler on a dedicated goroutine. A handler error nacks the delivery without
// requeueing; panics are recovered and logged.
func (b *Broker) Consume(queue, consumerTag string, handler func(ctx context.Context, delivery amqp.Delivery) error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	deliveries, err := b.ch.Consume(
		queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("broker: consume %s: %w", queue, err)
	}

	go func() {
		for delivery := range deliveries {
			b.dispatch(queue, delivery, handler)
		}
		b.logger.Info("broker consumer stopped", zap.String("queue", queue))
	}()
	return nil
}

func (b *Broker) dispatch(queue string, delivery amqp.Delivery, handler func(ctx context.Context, delivery amqp.Delivery) error) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("broker handler panic",
				zap.String("queue", queue),
				zap.Any("panic", rec),
			)
			_ = delivery.Nack(false, false)
		}
	}()

	if err := handler(context.Background(), delivery); err != nil {
		b.logger.Warn("broker handler failed",
			zap.String("queue", queue),
			zap.String("routing_key", delivery.RoutingKey),
			zap.Error(err),
		)
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
}

// Close shuts down the channel and connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
