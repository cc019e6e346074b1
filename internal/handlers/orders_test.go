package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/services"
)

func newOrderRouter(t *testing.T, orders services.OrderService, payments services.PaymentService, returns services.ReturnService) chi.Router {
	t.Helper()
	if orders == nil {
		orders = &stubOrderService{}
	}
	if payments == nil {
		payments = &stubPaymentService{}
	}
	if returns == nil {
		returns = &stubReturnService{}
	}
	r := chi.NewRouter()
	r.Route("/orders", NewOrderHandlers(orders, payments, returns).Routes)
	return r
}

func orderFixture() domain.Order {
	userID := uint64(1)
	return domain.Order{
		ID:     55,
		UserID: &userID,
		Status: domain.OrderStatusPending,
		Totals: domain.OrderTotals{Currency: "USD", Subtotal: 6497, GrandTotal: 6497},
		Items: []domain.OrderItem{
			{ID: 500, OrderID: 55, SKU: "TEE-01", Name: "Linen Tee", Quantity: 2, UnitPrice: 1999, LineTotal: 3998, Currency: "USD"},
		},
		PlacedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestOrderHandlersCreateOrder(t *testing.T) {
	var gotCmd services.CreateOrderCommand
	orders := &stubOrderService{
		createFunc: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			gotCmd = cmd
			return orderFixture(), nil
		},
	}

	router := newOrderRouter(t, orders, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders", 1, "customer", `{"shipping_address_id":31,"billing_address_id":31}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ShippingAddressID != 31 || gotCmd.BillingAddressID != 31 {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	if gotCmd.Actor.UserID == nil || *gotCmd.Actor.UserID != 1 {
		t.Fatalf("expected actor from token, got %+v", gotCmd.Actor)
	}

	var payload struct {
		Order struct {
			ID     uint64 `json:"id"`
			Status string `json:"status"`
			Totals struct {
				GrandTotal int64 `json:"grand_total"`
			} `json:"totals"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if payload.Order.ID != 55 || payload.Order.Status != "pending" || payload.Order.Totals.GrandTotal != 6497 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestOrderHandlersCreateOrderRequiresAuth(t *testing.T) {
	router := newOrderRouter(t, &stubOrderService{}, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, guestRequest(http.MethodPost, "/orders", "", `{"shipping_address_id":31,"billing_address_id":31}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOrderHandlersCreateOrderEmptyCart(t *testing.T) {
	orders := &stubOrderService{
		createFunc: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderEmptyCart
		},
	}

	router := newOrderRouter(t, orders, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders", 1, "customer", `{"shipping_address_id":31,"billing_address_id":31}`))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	assertErrorCode(t, rec.Body.Bytes(), "empty_cart")
}

func TestOrderHandlersGetOrderForbidden(t *testing.T) {
	orders := &stubOrderService{
		getFunc: func(ctx context.Context, orderID uint64, actor services.Actor) (services.Order, error) {
			return services.Order{}, services.ErrOrderForbidden
		},
	}

	router := newOrderRouter(t, orders, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodGet, "/orders/55", 2, "customer", ""))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestOrderHandlersCancelOrder(t *testing.T) {
	var gotCmd services.CancelOrderCommand
	orders := &stubOrderService{
		cancelFunc: func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			gotCmd = cmd
			order := orderFixture()
			order.Status = domain.OrderStatusCancelled
			return order, nil
		},
	}

	router := newOrderRouter(t, orders, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders/55/cancel", 1, "customer", `{"reason":"changed my mind"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.OrderID != 55 || gotCmd.Reason != "changed my mind" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestOrderHandlersCancelInvalidTransition(t *testing.T) {
	orders := &stubOrderService{
		cancelFunc: func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidTransition
		},
	}

	router := newOrderRouter(t, orders, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders/55/cancel", 1, "customer", `{"reason":"late"}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, rec.Body.Bytes(), "invalid_transition")
}

func TestOrderHandlersInitiatePayment(t *testing.T) {
	var gotCmd services.InitiatePaymentCommand
	payments := &stubPaymentService{
		initiateFunc: func(ctx context.Context, cmd services.InitiatePaymentCommand) (services.Payment, error) {
			gotCmd = cmd
			return domain.Payment{
				ID:                9,
				OrderID:           cmd.OrderID,
				Provider:          "stripe",
				ProviderReference: "pi_123",
				Status:            domain.PaymentStatusRequiresAction,
				Currency:          "USD",
				Amount:            6497,
				ClientSecret:      "pi_123_secret",
			}, nil
		},
	}

	router := newOrderRouter(t, nil, payments, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders/55/payments", 1, "customer", `{"provider":"stripe"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.OrderID != 55 || gotCmd.Provider != "stripe" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}

	var payload struct {
		Payment struct {
			ClientSecret string `json:"client_secret"`
			Status       string `json:"status"`
		} `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if payload.Payment.ClientSecret != "pi_123_secret" || payload.Payment.Status != "requires_action" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestOrderHandlersInitiatePaymentNotPayable(t *testing.T) {
	payments := &stubPaymentService{
		initiateFunc: func(ctx context.Context, cmd services.InitiatePaymentCommand) (services.Payment, error) {
			return services.Payment{}, services.ErrPaymentOrderNotPayable
		},
	}

	router := newOrderRouter(t, nil, payments, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders/55/payments", 1, "customer", `{"provider":"cod"}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, rec.Body.Bytes(), "order_not_payable")
}

func TestOrderHandlersRequestReturn(t *testing.T) {
	var gotCmd services.RequestReturnCommand
	returns := &stubReturnService{
		requestFunc: func(ctx context.Context, cmd services.RequestReturnCommand) (services.OrderReturn, error) {
			gotCmd = cmd
			return domain.OrderReturn{ID: 3, OrderID: cmd.OrderID, Status: domain.ReturnStatusRequested, Reason: cmd.Reason}, nil
		},
	}

	router := newOrderRouter(t, nil, nil, returns)
	rec := httptest.NewRecorder()
	body := `{"reason":"damaged","items":[{"order_item_id":500,"quantity":1}]}`
	router.ServeHTTP(rec, userRequest(http.MethodPost, "/orders/55/returns", 1, "customer", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.OrderID != 55 || len(gotCmd.Items) != 1 || gotCmd.Items[0].OrderItemID != 500 {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

type stubOrderService struct {
	createFunc        func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error)
	getFunc           func(ctx context.Context, orderID uint64, actor services.Actor) (services.Order, error)
	listFunc          func(ctx context.Context, filter services.OrderListFilter) (services.Page[services.Order], error)
	transitionFunc    func(ctx context.Context, cmd services.TransitionOrderCommand) (services.Order, error)
	cancelFunc        func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error)
	setTrackingFunc   func(ctx context.Context, cmd services.SetTrackingCommand) (services.Order, error)
	markDeliveredFunc func(ctx context.Context, cmd services.MarkDeliveredCommand) (services.Order, error)
	markPaidFunc      func(ctx context.Context, cmd services.MarkPaidCommand) (services.Order, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID uint64, actor services.Actor) (services.Order, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, orderID, actor)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (services.Page[services.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return services.Page[services.Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.TransitionOrderCommand) (services.Order, error) {
	if s.transitionFunc != nil {
		return s.transitionFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) SetTracking(ctx context.Context, cmd services.SetTrackingCommand) (services.Order, error) {
	if s.setTrackingFunc != nil {
		return s.setTrackingFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, cmd services.MarkDeliveredCommand) (services.Order, error) {
	if s.markDeliveredFunc != nil {
		return s.markDeliveredFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) MarkPaid(ctx context.Context, cmd services.MarkPaidCommand) (services.Order, error) {
	if s.markPaidFunc != nil {
		return s.markPaidFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

type stubPaymentService struct {
	initiateFunc func(ctx context.Context, cmd services.InitiatePaymentCommand) (services.Payment, error)
	applyFunc    func(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error)
	listFunc     func(ctx context.Context, orderID uint64, actor services.Actor) ([]services.Payment, error)
}

func (s *stubPaymentService) InitiatePayment(ctx context.Context, cmd services.InitiatePaymentCommand) (services.Payment, error) {
	if s.initiateFunc != nil {
		return s.initiateFunc(ctx, cmd)
	}
	return services.Payment{}, nil
}

func (s *stubPaymentService) ApplyProviderResult(ctx context.Context, cmd services.ProviderResultCommand) (services.Payment, error) {
	if s.applyFunc != nil {
		return s.applyFunc(ctx, cmd)
	}
	return services.Payment{}, nil
}

func (s *stubPaymentService) ListPayments(ctx context.Context, orderID uint64, actor services.Actor) ([]services.Payment, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, orderID, actor)
	}
	return nil, nil
}

type stubReturnService struct {
	requestFunc  func(ctx context.Context, cmd services.RequestReturnCommand) (services.OrderReturn, error)
	approveFunc  func(ctx context.Context, cmd services.ReturnDecisionCommand) (services.OrderReturn, error)
	rejectFunc   func(ctx context.Context, cmd services.ReturnDecisionCommand) (services.OrderReturn, error)
	receivedFunc func(ctx context.Context, cmd services.ReturnReceivedCommand) (services.OrderReturn, error)
	refundFunc   func(ctx context.Context, cmd services.ReturnRefundCommand) (services.OrderReturn, error)
	getFunc      func(ctx context.Context, returnID uint64, actor services.Actor) (services.OrderReturn, error)
	listFunc     func(ctx context.Context, filter services.ReturnListFilter) (services.Page[services.OrderReturn], error)
}

func (s *stubReturnService) RequestReturn(ctx context.Context, cmd services.RequestReturnCommand) (services.OrderReturn, error) {
	if s.requestFunc != nil {
		return s.requestFunc(ctx, cmd)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) Approve(ctx context.Context, cmd services.ReturnDecisionCommand) (services.OrderReturn, error) {
	if s.approveFunc != nil {
		return s.approveFunc(ctx, cmd)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) Reject(ctx context.Context, cmd services.ReturnDecisionCommand) (services.OrderReturn, error) {
	if s.rejectFunc != nil {
		return s.rejectFunc(ctx, cmd)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) MarkReceived(ctx context.Context, cmd services.ReturnReceivedCommand) (services.OrderReturn, error) {
	if s.receivedFunc != nil {
		return s.receivedFunc(ctx, cmd)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) Refund(ctx context.Context, cmd services.ReturnRefundCommand) (services.OrderReturn, error) {
	if s.refundFunc != nil {
		return s.refundFunc(ctx, cmd)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) GetReturn(ctx context.Context, returnID uint64, actor services.Actor) (services.OrderReturn, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, returnID, actor)
	}
	return services.OrderReturn{}, nil
}

func (s *stubReturnService) ListReturns(ctx context.Context, filter services.ReturnListFilter) (services.Page[services.OrderReturn], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return services.Page[services.OrderReturn]{}, nil
}
