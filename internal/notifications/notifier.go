package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/maisonmarche/storefront-api/internal/services"
)

// LogNotifier records order notifications in the structured log. It stands in
// for an outbound mail or push integration.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that writes to the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyOrderStatusChanged(_ context.Context, event services.OrderStatusChangedEvent) error {
	fields := []zap.Field{
		zap.Uint64("order_id", event.OrderID),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.UserID != nil {
		fields = append(fields, zap.Uint64("user_id", *event.UserID))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	n.logger.Info("order status notification", fields...)
	return nil
}
