package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

func deliveredOrderFixture(userID uint64) domain.Order {
	return domain.Order{
		ID:     55,
		UserID: &userID,
		Status: domain.OrderStatusDelivered,
		Totals: domain.OrderTotals{Currency: "USD", Subtotal: 6497, GrandTotal: 6497},
		Items: []domain.OrderItem{
			{ID: 500, OrderID: 55, Purchasable: domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 1}, Quantity: 2, UnitPrice: 1999},
			{ID: 501, OrderID: 55, Purchasable: domain.PurchasableRef{Kind: domain.PurchasableVariant, ID: 4}, Quantity: 1, UnitPrice: 2500},
		},
	}
}

func TestReturnServiceRequestReturnForcesOrderReturned(t *testing.T) {
	order := deliveredOrderFixture(1)
	var inserted domain.OrderReturn
	returns := &stubReturnRepository{
		insertFunc: func(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error) {
			inserted = ret
			ret.ID = 7
			return ret, nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}
	flow := &stubOrderService{
		transitionFunc: func(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
			if cmd.Next != domain.OrderStatusReturned {
				t.Fatalf("expected transition to returned, got %s", cmd.Next)
			}
			if cmd.OrderID != 55 {
				t.Fatalf("unexpected order id %d", cmd.OrderID)
			}
			return Order{ID: cmd.OrderID, Status: cmd.Next}, nil
		},
	}

	service := newReturnService(t, returns, orders, flow, &stubInventoryService{}, nil)
	ret, err := service.RequestReturn(context.Background(), RequestReturnCommand{
		OrderID: 55,
		Reason:  "damaged",
		Items:   []ReturnItem{{OrderItemID: 500, Quantity: 1}},
		Actor:   Actor{UserID: uint64Ptr(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.ID != 7 {
		t.Fatalf("expected return 7, got %d", ret.ID)
	}
	if inserted.Status != domain.ReturnStatusRequested {
		t.Fatalf("expected requested status, got %s", inserted.Status)
	}
	if inserted.UserID != 1 {
		t.Fatalf("expected owner 1, got %d", inserted.UserID)
	}
}

func TestReturnServiceRequestReturnSecondRequestSkipsTransition(t *testing.T) {
	order := deliveredOrderFixture(1)
	order.Status = domain.OrderStatusReturned
	returns := &stubReturnRepository{
		insertFunc: func(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error) {
			return ret, nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}
	flow := &stubOrderService{
		transitionFunc: func(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
			t.Fatalf("already-returned order must not transition again")
			return Order{}, nil
		},
	}

	service := newReturnService(t, returns, orders, flow, &stubInventoryService{}, nil)
	_, err := service.RequestReturn(context.Background(), RequestReturnCommand{
		OrderID: 55,
		Reason:  "wrong size",
		Actor:   Actor{UserID: uint64Ptr(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReturnServiceRequestReturnRejectsUndeliveredOrder(t *testing.T) {
	order := deliveredOrderFixture(1)
	order.Status = domain.OrderStatusShipped
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}

	service := newReturnService(t, &stubReturnRepository{}, orders, &stubOrderService{}, &stubInventoryService{}, nil)
	_, err := service.RequestReturn(context.Background(), RequestReturnCommand{
		OrderID: 55,
		Reason:  "changed my mind",
		Actor:   Actor{UserID: uint64Ptr(1)},
	})
	if !errors.Is(err, ErrReturnOrderNotReturnable) {
		t.Fatalf("expected ErrReturnOrderNotReturnable, got %v", err)
	}
}

func TestReturnServiceRequestReturnValidatesItems(t *testing.T) {
	order := deliveredOrderFixture(1)
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}

	service := newReturnService(t, &stubReturnRepository{}, orders, &stubOrderService{}, &stubInventoryService{}, nil)

	cases := []struct {
		name  string
		items []ReturnItem
	}{
		{"foreign item", []ReturnItem{{OrderItemID: 999, Quantity: 1}}},
		{"duplicate item", []ReturnItem{{OrderItemID: 500, Quantity: 1}, {OrderItemID: 500, Quantity: 1}}},
		{"quantity above line", []ReturnItem{{OrderItemID: 500, Quantity: 3}}},
		{"zero quantity", []ReturnItem{{OrderItemID: 500, Quantity: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.RequestReturn(context.Background(), RequestReturnCommand{
				OrderID: 55,
				Reason:  "damaged",
				Items:   tc.items,
				Actor:   Actor{UserID: uint64Ptr(1)},
			})
			if !errors.Is(err, ErrReturnInvalidInput) {
				t.Fatalf("expected ErrReturnInvalidInput, got %v", err)
			}
		})
	}
}

func TestReturnServiceApproveRequiresAdmin(t *testing.T) {
	service := newReturnService(t, &stubReturnRepository{}, &stubOrderRepository{}, &stubOrderService{}, &stubInventoryService{}, nil)
	_, err := service.Approve(context.Background(), ReturnDecisionCommand{
		ReturnID: 7,
		Actor:    Actor{UserID: uint64Ptr(1)},
	})
	if !errors.Is(err, ErrReturnForbidden) {
		t.Fatalf("expected ErrReturnForbidden, got %v", err)
	}
}

func TestReturnServiceApproveStampsTimestamp(t *testing.T) {
	now := time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)
	var updated domain.OrderReturn
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusRequested}, nil
		},
		updateFunc: func(ctx context.Context, ret domain.OrderReturn) error {
			updated = ret
			return nil
		},
	}

	service := newReturnService(t, returns, &stubOrderRepository{}, &stubOrderService{}, &stubInventoryService{}, func() time.Time { return now })
	ret, err := service.Approve(context.Background(), ReturnDecisionCommand{
		ReturnID: 7,
		Actor:    Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.Status != domain.ReturnStatusApproved {
		t.Fatalf("expected approved, got %s", ret.Status)
	}
	if updated.ApprovedAt == nil || !updated.ApprovedAt.Equal(now) {
		t.Fatalf("expected approved_at stamped, got %v", updated.ApprovedAt)
	}
}

func TestReturnServiceRejectTerminal(t *testing.T) {
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusRejected}, nil
		},
	}

	service := newReturnService(t, returns, &stubOrderRepository{}, &stubOrderService{}, &stubInventoryService{}, nil)
	_, err := service.Approve(context.Background(), ReturnDecisionCommand{
		ReturnID: 7,
		Actor:    Actor{Role: domain.RoleAdmin},
	})
	if !errors.Is(err, ErrReturnInvalidState) {
		t.Fatalf("expected ErrReturnInvalidState, got %v", err)
	}
}

func TestReturnServiceMarkReceivedRestocks(t *testing.T) {
	order := deliveredOrderFixture(1)
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{
				ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusApproved,
				Items: []domain.ReturnItem{{OrderItemID: 500, Quantity: 2}, {OrderItemID: 501, Quantity: 1}},
			}, nil
		},
		updateFunc: func(ctx context.Context, ret domain.OrderReturn) error {
			if ret.ReceivedAt == nil {
				t.Fatalf("expected received_at stamped")
			}
			if ret.ReturnTrackingNumber != "RTN-1" {
				t.Fatalf("expected tracking recorded, got %q", ret.ReturnTrackingNumber)
			}
			return nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}
	var increments []IncrementStockCommand
	inventory := &stubInventoryService{
		incrementFunc: func(ctx context.Context, cmd IncrementStockCommand) (StockMovement, error) {
			increments = append(increments, cmd)
			return StockMovement{}, nil
		},
	}

	service := newReturnService(t, returns, orders, &stubOrderService{}, inventory, nil)
	ret, err := service.MarkReceived(context.Background(), ReturnReceivedCommand{
		ReturnID:       7,
		TrackingNumber: "RTN-1",
		Actor:          Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.Status != domain.ReturnStatusReceived {
		t.Fatalf("expected received, got %s", ret.Status)
	}
	if len(increments) != 2 {
		t.Fatalf("expected a restock per returned line, got %d", len(increments))
	}
	if increments[0].Quantity != 2 || increments[0].Reason != domain.StockReasonReturn {
		t.Fatalf("unexpected restock %#v", increments[0])
	}
	if increments[1].Ref != (domain.PurchasableRef{Kind: domain.PurchasableVariant, ID: 4}) {
		t.Fatalf("unexpected restock target %v", increments[1].Ref)
	}
}

func TestReturnServiceRefundDefaultsToReturnedLineTotals(t *testing.T) {
	order := deliveredOrderFixture(1)
	var updated domain.OrderReturn
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{
				ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusReceived,
				Items: []domain.ReturnItem{{OrderItemID: 500, Quantity: 1}},
			}, nil
		},
		updateFunc: func(ctx context.Context, ret domain.OrderReturn) error {
			updated = ret
			return nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}

	service := newReturnService(t, returns, orders, &stubOrderService{}, &stubInventoryService{}, nil)
	ret, err := service.Refund(context.Background(), ReturnRefundCommand{
		ReturnID: 7,
		Actor:    Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.Status != domain.ReturnStatusRefunded {
		t.Fatalf("expected refunded, got %s", ret.Status)
	}
	if updated.RefundAmount == nil || *updated.RefundAmount != 1999 {
		t.Fatalf("expected refund 1999, got %v", updated.RefundAmount)
	}
	if updated.RefundedAt == nil {
		t.Fatalf("expected refunded_at stamped")
	}
}

func TestReturnServiceRefundWholeOrderFallsBackToGrandTotal(t *testing.T) {
	order := deliveredOrderFixture(1)
	var updated domain.OrderReturn
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusReceived}, nil
		},
		updateFunc: func(ctx context.Context, ret domain.OrderReturn) error {
			updated = ret
			return nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}

	service := newReturnService(t, returns, orders, &stubOrderService{}, &stubInventoryService{}, nil)
	_, err := service.Refund(context.Background(), ReturnRefundCommand{
		ReturnID: 7,
		Actor:    Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RefundAmount == nil || *updated.RefundAmount != order.Totals.GrandTotal {
		t.Fatalf("expected grand total refund, got %v", updated.RefundAmount)
	}
}

func TestReturnServiceRefundRejectsAmountAboveReturnedValue(t *testing.T) {
	order := deliveredOrderFixture(1)
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{
				ID: returnID, OrderID: 55, UserID: 1, Status: domain.ReturnStatusReceived,
				Items: []domain.ReturnItem{{OrderItemID: 500, Quantity: 1}},
			}, nil
		},
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return order, nil
		},
	}

	service := newReturnService(t, returns, orders, &stubOrderService{}, &stubInventoryService{}, nil)
	amount := domain.Cents(2500)
	_, err := service.Refund(context.Background(), ReturnRefundCommand{
		ReturnID: 7,
		Amount:   &amount,
		Actor:    Actor{Role: domain.RoleAdmin},
	})
	if !errors.Is(err, ErrReturnInvalidInput) {
		t.Fatalf("expected ErrReturnInvalidInput, got %v", err)
	}
}

func TestReturnServiceGetReturnOwnership(t *testing.T) {
	returns := &stubReturnRepository{
		findFunc: func(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
			return domain.OrderReturn{ID: returnID, OrderID: 55, UserID: 2, Status: domain.ReturnStatusRequested}, nil
		},
	}

	service := newReturnService(t, returns, &stubOrderRepository{}, &stubOrderService{}, &stubInventoryService{}, nil)
	_, err := service.GetReturn(context.Background(), 7, Actor{UserID: uint64Ptr(1)})
	if !errors.Is(err, ErrReturnForbidden) {
		t.Fatalf("expected ErrReturnForbidden, got %v", err)
	}

	ret, err := service.GetReturn(context.Background(), 7, Actor{Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error for admin: %v", err)
	}
	if ret.ID != 7 {
		t.Fatalf("expected return 7, got %d", ret.ID)
	}
}

func newReturnService(t *testing.T, returns repositories.ReturnRepository, orders repositories.OrderRepository, flow OrderService, inventory InventoryService, clock func() time.Time) ReturnService {
	t.Helper()
	service, err := NewReturnService(ReturnServiceDeps{
		Returns:    returns,
		Orders:     orders,
		OrderFlow:  flow,
		Inventory:  inventory,
		UnitOfWork: &stubUnitOfWork{},
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing return service: %v", err)
	}
	return service
}

type stubReturnRepository struct {
	insertFunc func(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error)
	updateFunc func(ctx context.Context, ret domain.OrderReturn) error
	findFunc   func(ctx context.Context, returnID uint64) (domain.OrderReturn, error)
	listFunc   func(ctx context.Context, filter repositories.ReturnListFilter) (domain.Page[domain.OrderReturn], error)
}

func (s *stubReturnRepository) Insert(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error) {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, ret)
	}
	return ret, nil
}

func (s *stubReturnRepository) Update(ctx context.Context, ret domain.OrderReturn) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, ret)
	}
	return nil
}

func (s *stubReturnRepository) FindByID(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, returnID)
	}
	return domain.OrderReturn{}, &repositoryErrorStub{notFound: true}
}

func (s *stubReturnRepository) List(ctx context.Context, filter repositories.ReturnListFilter) (domain.Page[domain.OrderReturn], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.Page[domain.OrderReturn]{}, nil
}

type stubOrderService struct {
	createFunc     func(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	transitionFunc func(ctx context.Context, cmd TransitionOrderCommand) (Order, error)
	markPaidFunc   func(ctx context.Context, cmd MarkPaidCommand) (Order, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return Order{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID uint64, actor Actor) (Order, error) {
	return Order{ID: orderID}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter OrderListFilter) (Page[Order], error) {
	return Page[Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
	if s.transitionFunc != nil {
		return s.transitionFunc(ctx, cmd)
	}
	return Order{ID: cmd.OrderID, Status: cmd.Next}, nil
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	return Order{ID: cmd.OrderID, Status: domain.OrderStatusCancelled}, nil
}

func (s *stubOrderService) SetTracking(ctx context.Context, cmd SetTrackingCommand) (Order, error) {
	return Order{ID: cmd.OrderID}, nil
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (Order, error) {
	return Order{ID: cmd.OrderID, Status: domain.OrderStatusDelivered}, nil
}

func (s *stubOrderService) MarkPaid(ctx context.Context, cmd MarkPaidCommand) (Order, error) {
	if s.markPaidFunc != nil {
		return s.markPaidFunc(ctx, cmd)
	}
	return Order{ID: cmd.OrderID, Status: domain.OrderStatusPaid}, nil
}
