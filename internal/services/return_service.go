package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrReturnInvalidInput signals the caller provided invalid arguments.
	ErrReturnInvalidInput = errors.New("return: invalid input")
	// ErrReturnNotFound indicates the return could not be located.
	ErrReturnNotFound = errors.New("return: not found")
	// ErrReturnForbidden indicates the actor may not access the return.
	ErrReturnForbidden = errors.New("return: forbidden")
	// ErrReturnInvalidState indicates the return cannot move from its current status.
	ErrReturnInvalidState = errors.New("return: invalid state")
	// ErrReturnOrderNotReturnable indicates the order is not delivered or returned.
	ErrReturnOrderNotReturnable = errors.New("return: order is not returnable")
)

// returnTransitions is the closed workflow of a return request.
var returnTransitions = map[ReturnStatus][]ReturnStatus{
	domain.ReturnStatusRequested: {domain.ReturnStatusApproved, domain.ReturnStatusRejected},
	domain.ReturnStatusApproved:  {domain.ReturnStatusReceived},
	domain.ReturnStatusReceived:  {domain.ReturnStatusRefunded},
	domain.ReturnStatusRefunded:  {},
	domain.ReturnStatusRejected:  {},
}

func canReturnTransition(from, to ReturnStatus) bool {
	for _, next := range returnTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReturnServiceDeps bundles the collaborators required to construct a return service.
type ReturnServiceDeps struct {
	Returns    repositories.ReturnRepository
	Orders     repositories.OrderRepository
	OrderFlow  OrderService
	Inventory  InventoryService
	UnitOfWork repositories.UnitOfWork
	Audit      AuditLogService
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type returnService struct {
	returns   repositories.ReturnRepository
	orders    repositories.OrderRepository
	orderFlow OrderService
	inventory InventoryService
	uow       repositories.UnitOfWork
	audit     AuditLogService
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewReturnService wires dependencies into a concrete ReturnService implementation.
func NewReturnService(deps ReturnServiceDeps) (ReturnService, error) {
	if deps.Returns == nil {
		return nil, errors.New("return service: return repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("return service: order repository is required")
	}
	if deps.OrderFlow == nil {
		return nil, errors.New("return service: order service is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("return service: inventory service is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("return service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &returnService{
		returns:   deps.Returns,
		orders:    deps.Orders,
		orderFlow: deps.OrderFlow,
		inventory: deps.Inventory,
		uow:       deps.UnitOfWork,
		audit:     deps.Audit,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *returnService) RequestReturn(ctx context.Context, cmd RequestReturnCommand) (OrderReturn, error) {
	if cmd.OrderID == 0 {
		return OrderReturn{}, fmt.Errorf("%w: order id is required", ErrReturnInvalidInput)
	}
	if cmd.Reason == "" {
		return OrderReturn{}, fmt.Errorf("%w: reason is required", ErrReturnInvalidInput)
	}
	if cmd.Actor.UserID == nil {
		return OrderReturn{}, fmt.Errorf("%w: authentication required", ErrReturnForbidden)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if isNotFound(err) {
			return OrderReturn{}, fmt.Errorf("%w: order %d", ErrReturnNotFound, cmd.OrderID)
		}
		return OrderReturn{}, err
	}
	if !cmd.Actor.IsAdmin() {
		if order.UserID == nil || *order.UserID != *cmd.Actor.UserID {
			return OrderReturn{}, fmt.Errorf("%w: order %d", ErrReturnForbidden, cmd.OrderID)
		}
	}
	if order.Status != domain.OrderStatusDelivered && order.Status != domain.OrderStatusReturned {
		return OrderReturn{}, fmt.Errorf("%w: order is %s", ErrReturnOrderNotReturnable, order.Status)
	}

	items, err := validateReturnItems(order, cmd.Items)
	if err != nil {
		return OrderReturn{}, err
	}

	var ret OrderReturn
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		ret, err = s.returns.Insert(ctx, domain.OrderReturn{
			OrderID:     order.ID,
			UserID:      *cmd.Actor.UserID,
			Status:      domain.ReturnStatusRequested,
			Reason:      cmd.Reason,
			Description: cmd.Description,
			Items:       items,
		})
		if err != nil {
			return err
		}

		// The first return against a delivered order forces the order into
		// the returned state.
		if order.Status == domain.OrderStatusDelivered {
			if _, err := s.orderFlow.TransitionStatus(ctx, TransitionOrderCommand{
				OrderID: order.ID,
				Next:    domain.OrderStatusReturned,
				Reason:  "return requested",
				Actor:   cmd.Actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OrderReturn{}, err
	}

	s.logger(ctx, "return.requested", map[string]any{
		"return_id": ret.ID,
		"order_id":  order.ID,
		"reason":    cmd.Reason,
	})
	s.recordAudit(ctx, cmd.Actor, "return.request", ret, nil)
	return ret, nil
}

func (s *returnService) Approve(ctx context.Context, cmd ReturnDecisionCommand) (OrderReturn, error) {
	return s.decide(ctx, cmd, domain.ReturnStatusApproved)
}

func (s *returnService) Reject(ctx context.Context, cmd ReturnDecisionCommand) (OrderReturn, error) {
	return s.decide(ctx, cmd, domain.ReturnStatusRejected)
}

func (s *returnService) decide(ctx context.Context, cmd ReturnDecisionCommand, next ReturnStatus) (OrderReturn, error) {
	if !cmd.Actor.IsAdmin() {
		return OrderReturn{}, fmt.Errorf("%w: return decisions are a back-office operation", ErrReturnForbidden)
	}
	ret, err := s.loadReturn(ctx, cmd.ReturnID)
	if err != nil {
		return OrderReturn{}, err
	}
	if !canReturnTransition(ret.Status, next) {
		return OrderReturn{}, fmt.Errorf("%w: %s -> %s", ErrReturnInvalidState, ret.Status, next)
	}

	now := s.clock()
	ret.Status = next
	if next == domain.ReturnStatusApproved {
		ret.ApprovedAt = &now
	}
	if cmd.Note != "" {
		ret.Description = cmd.Note
	}
	if err := s.returns.Update(ctx, ret); err != nil {
		return OrderReturn{}, err
	}

	s.recordAudit(ctx, cmd.Actor, "return."+string(next), ret, map[string]any{"note": cmd.Note})
	return ret, nil
}

func (s *returnService) MarkReceived(ctx context.Context, cmd ReturnReceivedCommand) (OrderReturn, error) {
	if !cmd.Actor.IsAdmin() {
		return OrderReturn{}, fmt.Errorf("%w: receiving returns is a back-office operation", ErrReturnForbidden)
	}
	ret, err := s.loadReturn(ctx, cmd.ReturnID)
	if err != nil {
		return OrderReturn{}, err
	}
	if !canReturnTransition(ret.Status, domain.ReturnStatusReceived) {
		return OrderReturn{}, fmt.Errorf("%w: %s -> %s", ErrReturnInvalidState, ret.Status, domain.ReturnStatusReceived)
	}

	order, err := s.orders.FindByID(ctx, ret.OrderID)
	if err != nil {
		return OrderReturn{}, err
	}
	lines := make(map[uint64]OrderItem, len(order.Items))
	for _, item := range order.Items {
		lines[item.ID] = item
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		now := s.clock()
		ret.Status = domain.ReturnStatusReceived
		ret.ReceivedAt = &now
		ret.ReturnTrackingNumber = cmd.TrackingNumber
		ret.ReturnTrackingCarrier = cmd.TrackingCarrier
		if err := s.returns.Update(ctx, ret); err != nil {
			return err
		}

		// Restock every returned line through the ledger.
		for _, item := range ret.Items {
			line, ok := lines[item.OrderItemID]
			if !ok {
				continue
			}
			if _, err := s.inventory.IncrementStock(ctx, IncrementStockCommand{
				Ref:      line.Purchasable,
				Quantity: item.Quantity,
				Reason:   domain.StockReasonReturn,
				Metadata: map[string]any{
					"return_id": ret.ID,
					"order_id":  ret.OrderID,
				},
				Actor: cmd.Actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OrderReturn{}, err
	}

	s.recordAudit(ctx, cmd.Actor, "return.received", ret, map[string]any{
		"tracking_number": cmd.TrackingNumber,
	})
	return ret, nil
}

func (s *returnService) Refund(ctx context.Context, cmd ReturnRefundCommand) (OrderReturn, error) {
	if !cmd.Actor.IsAdmin() {
		return OrderReturn{}, fmt.Errorf("%w: refunds are a back-office operation", ErrReturnForbidden)
	}
	ret, err := s.loadReturn(ctx, cmd.ReturnID)
	if err != nil {
		return OrderReturn{}, err
	}
	if !canReturnTransition(ret.Status, domain.ReturnStatusRefunded) {
		return OrderReturn{}, fmt.Errorf("%w: %s -> %s", ErrReturnInvalidState, ret.Status, domain.ReturnStatusRefunded)
	}

	computed, err := s.returnedAmount(ctx, ret)
	if err != nil {
		return OrderReturn{}, err
	}
	amount := cmd.Amount
	if amount == nil {
		amount = &computed
	}
	if *amount < 0 {
		return OrderReturn{}, fmt.Errorf("%w: refund amount must not be negative", ErrReturnInvalidInput)
	}
	if *amount > computed {
		return OrderReturn{}, fmt.Errorf("%w: refund amount exceeds returned value", ErrReturnInvalidInput)
	}

	now := s.clock()
	ret.Status = domain.ReturnStatusRefunded
	ret.RefundAmount = amount
	ret.RefundedAt = &now
	if err := s.returns.Update(ctx, ret); err != nil {
		return OrderReturn{}, err
	}

	s.recordAudit(ctx, cmd.Actor, "return.refunded", ret, map[string]any{
		"amount": amount.String(),
	})
	return ret, nil
}

func (s *returnService) GetReturn(ctx context.Context, returnID uint64, actor Actor) (OrderReturn, error) {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return OrderReturn{}, err
	}
	if !actor.IsAdmin() {
		if actor.UserID == nil || *actor.UserID != ret.UserID {
			return OrderReturn{}, fmt.Errorf("%w: return %d", ErrReturnForbidden, returnID)
		}
	}
	return ret, nil
}

func (s *returnService) ListReturns(ctx context.Context, filter ReturnListFilter) (Page[OrderReturn], error) {
	userID := filter.UserID
	if !filter.Actor.IsAdmin() {
		if filter.Actor.UserID == nil {
			return Page[OrderReturn]{}, fmt.Errorf("%w: authentication required", ErrReturnForbidden)
		}
		userID = filter.Actor.UserID
	}
	page, err := s.returns.List(ctx, repositories.ReturnListFilter{
		UserID:   userID,
		OrderID:  filter.OrderID,
		Statuses: filter.Statuses,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	})
	if err != nil {
		return Page[OrderReturn]{}, err
	}
	return page, nil
}

func (s *returnService) loadReturn(ctx context.Context, returnID uint64) (OrderReturn, error) {
	if returnID == 0 {
		return OrderReturn{}, fmt.Errorf("%w: return id is required", ErrReturnInvalidInput)
	}
	ret, err := s.returns.FindByID(ctx, returnID)
	if err != nil {
		if isNotFound(err) {
			return OrderReturn{}, fmt.Errorf("%w: return %d", ErrReturnNotFound, returnID)
		}
		return OrderReturn{}, err
	}
	return ret, nil
}

// returnedAmount sums the line totals of the returned items, falling back to
// the order's grand total when the return covers the whole order.
func (s *returnService) returnedAmount(ctx context.Context, ret OrderReturn) (Cents, error) {
	order, err := s.orders.FindByID(ctx, ret.OrderID)
	if err != nil {
		return 0, err
	}
	if len(ret.Items) == 0 {
		return order.Totals.GrandTotal, nil
	}
	lines := make(map[uint64]OrderItem, len(order.Items))
	for _, item := range order.Items {
		lines[item.ID] = item
	}
	var total Cents
	for _, item := range ret.Items {
		line, ok := lines[item.OrderItemID]
		if !ok {
			continue
		}
		total += line.UnitPrice.Mul(item.Quantity)
	}
	return total, nil
}

func validateReturnItems(order Order, items []ReturnItem) ([]ReturnItem, error) {
	lines := make(map[uint64]OrderItem, len(order.Items))
	for _, item := range order.Items {
		lines[item.ID] = item
	}
	seen := make(map[uint64]bool, len(items))
	for _, item := range items {
		line, ok := lines[item.OrderItemID]
		if !ok {
			return nil, fmt.Errorf("%w: order item %d does not belong to order %d",
				ErrReturnInvalidInput, item.OrderItemID, order.ID)
		}
		if seen[item.OrderItemID] {
			return nil, fmt.Errorf("%w: duplicate order item %d", ErrReturnInvalidInput, item.OrderItemID)
		}
		seen[item.OrderItemID] = true
		if item.Quantity < 1 || item.Quantity > line.Quantity {
			return nil, fmt.Errorf("%w: quantity %d for order item %d",
				ErrReturnInvalidInput, item.Quantity, item.OrderItemID)
		}
	}
	return items, nil
}

func (s *returnService) recordAudit(ctx context.Context, actor Actor, action string, ret OrderReturn, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	label := actor.Label
	if label == "" && actor.UserID != nil {
		label = "user:" + strconv.FormatUint(*actor.UserID, 10)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["order_id"] = ret.OrderID
	metadata["status"] = string(ret.Status)
	s.audit.Record(ctx, AuditLogRecord{
		Actor:     label,
		ActorType: "user",
		Action:    action,
		TargetRef: "returns/" + strconv.FormatUint(ret.ID, 10),
		Metadata:  metadata,
	})
}
