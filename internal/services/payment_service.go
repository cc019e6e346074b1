package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/payments"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrPaymentInvalidInput signals the caller provided invalid arguments.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates the payment could not be located.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentForbidden indicates the actor may not access the payment.
	ErrPaymentForbidden = errors.New("payment: forbidden")
	// ErrPaymentOrderNotPayable indicates the order is not awaiting payment.
	ErrPaymentOrderNotPayable = errors.New("payment: order is not payable")
)

// PaymentServiceDeps bundles the collaborators required to construct a payment service.
type PaymentServiceDeps struct {
	Payments  repositories.PaymentRepository
	Orders    repositories.OrderRepository
	OrderFlow OrderService
	Providers *payments.Resolver
	Audit     AuditLogService
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	payments  repositories.PaymentRepository
	orders    repositories.OrderRepository
	orderFlow OrderService
	providers *payments.Resolver
	audit     AuditLogService
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.OrderFlow == nil {
		return nil, errors.New("payment service: order service is required")
	}
	if deps.Providers == nil {
		return nil, errors.New("payment service: provider resolver is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		payments:  deps.Payments,
		orders:    deps.Orders,
		orderFlow: deps.OrderFlow,
		providers: deps.Providers,
		audit:     deps.Audit,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *paymentService) InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (Payment, error) {
	if cmd.OrderID == 0 {
		return Payment{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	provider, err := s.providers.Resolve(cmd.Provider)
	if err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrPaymentInvalidInput, err)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if isNotFound(err) {
			return Payment{}, fmt.Errorf("%w: order %d", ErrPaymentNotFound, cmd.OrderID)
		}
		return Payment{}, err
	}
	if !cmd.Actor.IsAdmin() {
		if cmd.Actor.UserID == nil || order.UserID == nil || *cmd.Actor.UserID != *order.UserID {
			return Payment{}, fmt.Errorf("%w: order %d", ErrPaymentForbidden, cmd.OrderID)
		}
	}
	if order.Status != domain.OrderStatusPending {
		return Payment{}, fmt.Errorf("%w: order is %s", ErrPaymentOrderNotPayable, order.Status)
	}

	intent, err := provider.CreateIntent(ctx, payments.IntentRequest{
		OrderID:        order.ID,
		Amount:         order.Totals.GrandTotal,
		Currency:       order.Totals.Currency,
		IdempotencyKey: fmt.Sprintf("order-%d-%d", order.ID, s.clock().Unix()),
	})
	if err != nil {
		return Payment{}, err
	}

	payment, err := s.payments.Insert(ctx, domain.Payment{
		OrderID:           order.ID,
		UserID:            order.UserID,
		Provider:          intent.Provider,
		ProviderReference: intent.Reference,
		Status:            intent.Status,
		Currency:          order.Totals.Currency,
		Amount:            order.Totals.GrandTotal,
		ClientSecret:      intent.ClientSecret,
		CheckoutURL:       intent.CheckoutURL,
		Metadata:          intent.Metadata,
	})
	if err != nil {
		return Payment{}, err
	}

	// Choosing cash on delivery moves the order out of the online payment
	// path immediately.
	if intent.Status == domain.PaymentStatusPendingCOD {
		if _, err := s.orderFlow.TransitionStatus(ctx, TransitionOrderCommand{
			OrderID: order.ID,
			Next:    domain.OrderStatusPendingCOD,
			Reason:  "cash on delivery selected",
			Actor:   cmd.Actor,
		}); err != nil {
			return Payment{}, err
		}
	}

	s.logger(ctx, "payment.initiated", map[string]any{
		"payment_id": payment.ID,
		"order_id":   order.ID,
		"provider":   payment.Provider,
		"amount":     payment.Amount.String(),
	})
	s.recordAudit(ctx, cmd.Actor, "payment.initiate", payment)
	return payment, nil
}

// ApplyProviderResult settles a payment from a verified provider event. It is
// idempotent: replaying a settled event returns the stored payment unchanged.
func (s *paymentService) ApplyProviderResult(ctx context.Context, cmd ProviderResultCommand) (Payment, error) {
	if cmd.Provider == "" || cmd.Reference == "" {
		return Payment{}, fmt.Errorf("%w: provider and reference are required", ErrPaymentInvalidInput)
	}

	payment, err := s.payments.FindByProviderReference(ctx, cmd.Provider, cmd.Reference)
	if err != nil {
		if isNotFound(err) {
			return Payment{}, fmt.Errorf("%w: %s payment %s", ErrPaymentNotFound, cmd.Provider, cmd.Reference)
		}
		return Payment{}, err
	}

	target := domain.PaymentStatusFailed
	if cmd.Succeeded {
		target = domain.PaymentStatusSucceeded
	}
	if payment.Status == target {
		return payment, nil
	}

	payment.Status = target
	payment.ErrorCode = cmd.ErrorCode
	payment.ErrorMessage = cmd.ErrorMessage
	if err := s.payments.Update(ctx, payment); err != nil {
		return Payment{}, err
	}

	if cmd.Succeeded {
		if _, err := s.orderFlow.MarkPaid(ctx, MarkPaidCommand{
			OrderID:   payment.OrderID,
			PaymentID: payment.ID,
			Provider:  cmd.Provider,
			Reference: cmd.Reference,
		}); err != nil {
			return Payment{}, err
		}
	}

	s.logger(ctx, "payment.settled", map[string]any{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"provider":   payment.Provider,
		"status":     string(payment.Status),
		"error_code": payment.ErrorCode,
	})
	s.recordAudit(ctx, Actor{Label: "provider:" + cmd.Provider}, "payment.settle", payment)
	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context, orderID uint64, actor Actor) ([]Payment, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: order %d", ErrPaymentNotFound, orderID)
		}
		return nil, err
	}
	if !actor.IsAdmin() {
		if actor.UserID == nil || order.UserID == nil || *actor.UserID != *order.UserID {
			return nil, fmt.Errorf("%w: order %d", ErrPaymentForbidden, orderID)
		}
	}
	return s.payments.ListByOrder(ctx, orderID)
}

func (s *paymentService) recordAudit(ctx context.Context, actor Actor, action string, payment Payment) {
	if s.audit == nil {
		return
	}
	label := actor.Label
	if label == "" && actor.UserID != nil {
		label = "user:" + strconv.FormatUint(*actor.UserID, 10)
	}
	s.audit.Record(ctx, AuditLogRecord{
		Actor:     label,
		ActorType: "user",
		Action:    action,
		TargetRef: "payments/" + strconv.FormatUint(payment.ID, 10),
		Metadata: map[string]any{
			"order_id":  payment.OrderID,
			"provider":  payment.Provider,
			"reference": payment.ProviderReference,
			"status":    string(payment.Status),
			"amount":    payment.Amount.String(),
		},
	})
}
