package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

func activeCartFixture(userID uint64) domain.Cart {
	return domain.Cart{
		ID:       10,
		UserID:   &userID,
		Currency: "USD",
		Status:   domain.CartStatusActive,
		Items: []domain.CartItem{
			{ID: 100, CartID: 10, Purchasable: domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 1}, Quantity: 2, UnitPrice: 1999, Currency: "USD"},
			{ID: 101, CartID: 10, Purchasable: domain.PurchasableRef{Kind: domain.PurchasableVariant, ID: 4}, Quantity: 1, UnitPrice: 2500, Currency: "USD"},
		},
	}
}

func addressFixture(id, userID uint64) domain.Address {
	return domain.Address{ID: id, UserID: userID, FirstName: "Ada", LastName: "Lovelace", Line1: "1 Main St", City: "Lyon", PostalCode: "69001", CountryCode: "FR"}
}

// orderCatalogFixture resolves the purchasables referenced by activeCartFixture.
func orderCatalogFixture() *stubCatalogRepository {
	return &stubCatalogRepository{
		resolveFunc: func(_ context.Context, ref domain.PurchasableRef) (domain.Purchasable, error) {
			purchasable := domain.Purchasable{Ref: ref, Currency: "USD", IsActive: true}
			switch ref.ID {
			case 1:
				purchasable.SKU, purchasable.Name, purchasable.Price = "TEE-01", "Classic Tee", 1999
			case 4:
				purchasable.SKU, purchasable.Name, purchasable.Price = "TEE-01-M", "Classic Tee M", 2500
			}
			return purchasable, nil
		},
	}
}

func TestOrderServiceCreateFromCart(t *testing.T) {
	now := time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC)
	cart := activeCartFixture(1)

	var inserted domain.Order
	var markedOrdered uint64
	orders := &stubOrderRepository{
		insertFunc: func(ctx context.Context, order domain.Order) (domain.Order, error) {
			inserted = order
			order.ID = 55
			return order, nil
		},
	}
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID uint64) (domain.Cart, error) {
			return cart, nil
		},
		lockFunc: func(ctx context.Context, cartID uint64) (domain.Cart, error) {
			return cart, nil
		},
		markOrderedFunc: func(ctx context.Context, cartID uint64) error {
			markedOrdered = cartID
			return nil
		},
	}
	addresses := &stubAddressRepository{
		getFunc: func(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
			return addressFixture(addressID, userID), nil
		},
	}
	var decrements []DecrementStockCommand
	inventory := &stubInventoryService{
		decrementFunc: func(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error) {
			decrements = append(decrements, cmd)
			return StockMovement{Quantity: -cmd.Quantity}, nil
		},
	}

	service := newOrderService(t, orders, carts, addresses, inventory, nil, func() time.Time { return now })
	order, err := service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{UserID: uint64Ptr(1)},
		ShippingAddressID: 7,
		BillingAddressID:  8,
		Actor:             Actor{UserID: uint64Ptr(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID != 55 {
		t.Fatalf("expected order 55, got %d", order.ID)
	}
	if inserted.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", inserted.Status)
	}
	if inserted.Totals.Subtotal != 2*1999+2500 {
		t.Fatalf("unexpected subtotal %d", inserted.Totals.Subtotal)
	}
	if inserted.Totals.GrandTotal != inserted.Totals.Subtotal {
		t.Fatalf("expected grand total to equal subtotal, got %d", inserted.Totals.GrandTotal)
	}
	if len(inserted.Items) != 2 {
		t.Fatalf("expected 2 item snapshots, got %d", len(inserted.Items))
	}
	if inserted.Items[0].LineTotal != 2*1999 {
		t.Fatalf("unexpected line total %d", inserted.Items[0].LineTotal)
	}
	if inserted.Items[0].SKU != "TEE-01" || inserted.Items[0].Name != "Classic Tee" {
		t.Fatalf("expected sku/name snapshot, got %q/%q", inserted.Items[0].SKU, inserted.Items[0].Name)
	}
	if inserted.Items[1].SKU != "TEE-01-M" || inserted.Items[1].Name != "Classic Tee M" {
		t.Fatalf("expected variant sku/name snapshot, got %q/%q", inserted.Items[1].SKU, inserted.Items[1].Name)
	}
	if inserted.ShippingAddress.ID != 7 || inserted.BillingAddress.ID != 8 {
		t.Fatalf("expected address snapshots 7/8, got %d/%d", inserted.ShippingAddress.ID, inserted.BillingAddress.ID)
	}
	if !inserted.PlacedAt.Equal(now) {
		t.Fatalf("expected placed at %v, got %v", now, inserted.PlacedAt)
	}
	if len(decrements) != 2 {
		t.Fatalf("expected a decrement per line, got %d", len(decrements))
	}
	if decrements[0].Quantity != 2 || decrements[1].Quantity != 1 {
		t.Fatalf("unexpected decrement quantities %d/%d", decrements[0].Quantity, decrements[1].Quantity)
	}
	if decrements[0].Reason != domain.StockReasonOrderCreated {
		t.Fatalf("expected reason order_created, got %q", decrements[0].Reason)
	}
	if markedOrdered != 10 {
		t.Fatalf("expected cart 10 marked ordered, got %d", markedOrdered)
	}
}

func TestOrderServiceCreateFromCartEmptyCart(t *testing.T) {
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID uint64) (domain.Cart, error) {
			return domain.Cart{ID: 10, UserID: &userID, Currency: "USD", Status: domain.CartStatusActive}, nil
		},
	}

	service := newOrderService(t, &stubOrderRepository{}, carts, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{UserID: uint64Ptr(1)},
		ShippingAddressID: 7,
		BillingAddressID:  8,
	})
	if !errors.Is(err, ErrOrderEmptyCart) {
		t.Fatalf("expected ErrOrderEmptyCart, got %v", err)
	}
}

func TestOrderServiceCreateFromCartRequiresUser(t *testing.T) {
	service := newOrderService(t, &stubOrderRepository{}, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{GuestToken: "tok"},
		ShippingAddressID: 7,
		BillingAddressID:  8,
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceCreateFromCartVanishedPurchasable(t *testing.T) {
	cart := activeCartFixture(1)
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID uint64) (domain.Cart, error) {
			return cart, nil
		},
		lockFunc: func(ctx context.Context, cartID uint64) (domain.Cart, error) {
			return cart, nil
		},
		markOrderedFunc: func(ctx context.Context, cartID uint64) error {
			t.Fatalf("failed creation must not consume the cart")
			return nil
		},
	}
	addresses := &stubAddressRepository{
		getFunc: func(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
			return addressFixture(addressID, userID), nil
		},
	}
	catalog := &stubCatalogRepository{
		resolveFunc: func(_ context.Context, ref domain.PurchasableRef) (domain.Purchasable, error) {
			return domain.Purchasable{}, &repositoryErrorStub{notFound: true}
		},
	}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     &stubOrderRepository{},
		Carts:      carts,
		Addresses:  addresses,
		Catalog:    catalog,
		Inventory:  &stubInventoryService{},
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	_, err = service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{UserID: uint64Ptr(1)},
		ShippingAddressID: 7,
		BillingAddressID:  8,
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceCreateFromCartShortfallAborts(t *testing.T) {
	cart := activeCartFixture(1)
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID uint64) (domain.Cart, error) {
			return cart, nil
		},
		lockFunc: func(ctx context.Context, cartID uint64) (domain.Cart, error) {
			return cart, nil
		},
		markOrderedFunc: func(ctx context.Context, cartID uint64) error {
			t.Fatalf("failed creation must not consume the cart")
			return nil
		},
	}
	addresses := &stubAddressRepository{
		getFunc: func(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
			return addressFixture(addressID, userID), nil
		},
	}
	inventory := &stubInventoryService{
		decrementFunc: func(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error) {
			if cmd.Ref.ID == 4 {
				return StockMovement{}, ErrInventoryInsufficientStock
			}
			return StockMovement{}, nil
		},
	}

	service := newOrderService(t, &stubOrderRepository{}, carts, addresses, inventory, nil, nil)
	_, err := service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{UserID: uint64Ptr(1)},
		ShippingAddressID: 7,
		BillingAddressID:  8,
	})
	if !errors.Is(err, ErrInventoryInsufficientStock) {
		t.Fatalf("expected ErrInventoryInsufficientStock, got %v", err)
	}
}

func TestOrderServiceCreateFromCartConsumedCartConflict(t *testing.T) {
	cart := activeCartFixture(1)
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID uint64) (domain.Cart, error) {
			return cart, nil
		},
		lockFunc: func(ctx context.Context, cartID uint64) (domain.Cart, error) {
			return cart, nil
		},
		markOrderedFunc: func(ctx context.Context, cartID uint64) error {
			return &repositoryErrorStub{conflict: true}
		},
	}
	addresses := &stubAddressRepository{
		getFunc: func(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
			return addressFixture(addressID, userID), nil
		},
	}

	service := newOrderService(t, &stubOrderRepository{}, carts, addresses, &stubInventoryService{}, nil, nil)
	_, err := service.CreateFromCart(context.Background(), CreateOrderCommand{
		Identity:          CartIdentity{UserID: uint64Ptr(1)},
		ShippingAddressID: 7,
		BillingAddressID:  8,
	})
	if !errors.Is(err, ErrOrderCartNotActive) {
		t.Fatalf("expected ErrOrderCartNotActive, got %v", err)
	}
}

func TestOrderServiceTransitionStatusShippedStampsTimestamp(t *testing.T) {
	now := time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC)
	var captured repositories.OrderStatusUpdate
	var from, to domain.OrderStatus
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusProcessing}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
			from, to = expected, next
			captured = update
			return nil
		},
	}
	events := &stubEventPublisher{}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, events, func() time.Time { return now })
	_, err := service.TransitionStatus(context.Background(), TransitionOrderCommand{
		OrderID: 55,
		Next:    domain.OrderStatusShipped,
		Actor:   Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != domain.OrderStatusProcessing || to != domain.OrderStatusShipped {
		t.Fatalf("expected processing -> shipped guard, got %s -> %s", from, to)
	}
	if captured.ShippedAt == nil || !captured.ShippedAt.Equal(now) {
		t.Fatalf("expected shipped_at stamped, got %v", captured.ShippedAt)
	}
	if len(events.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events.published))
	}
	if events.published[0].NewStatus != domain.OrderStatusShipped {
		t.Fatalf("unexpected event %#v", events.published[0])
	}
}

func TestOrderServiceTransitionStatusRejectsUnknownEdge(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusShipped}, nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.TransitionStatus(context.Background(), TransitionOrderCommand{
		OrderID: 55,
		Next:    domain.OrderStatusCancelled,
		Actor:   Actor{Role: domain.RoleAdmin},
	})
	if !errors.Is(err, ErrOrderInvalidTransition) {
		t.Fatalf("expected ErrOrderInvalidTransition, got %v", err)
	}
}

func TestOrderServiceTransitionEventFailureDoesNotFail(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusPending}, nil
		},
	}
	events := &stubEventPublisher{err: errors.New("broker down")}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, events, nil)
	_, err := service.TransitionStatus(context.Background(), TransitionOrderCommand{
		OrderID: 55,
		Next:    domain.OrderStatusProcessing,
		Actor:   Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the transition, got %v", err)
	}
}

func TestOrderServiceGetOrderForbidden(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(2), Status: domain.OrderStatusPending}, nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.GetOrder(context.Background(), 55, Actor{UserID: uint64Ptr(1)})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
}

func TestOrderServiceListOrdersScopesCustomers(t *testing.T) {
	var captured repositories.OrderListFilter
	orders := &stubOrderRepository{
		listFunc: func(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
			captured = filter
			return domain.Page[domain.Order]{}, nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.ListOrders(context.Background(), OrderListFilter{
		Actor:  Actor{UserID: uint64Ptr(3)},
		UserID: uint64Ptr(9),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.UserID == nil || *captured.UserID != 3 {
		t.Fatalf("expected customer scoped to own orders, got %v", captured.UserID)
	}
}

func TestOrderServiceSetTrackingRequiresAdmin(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusProcessing}, nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.SetTracking(context.Background(), SetTrackingCommand{
		OrderID: 55,
		Number:  "TRK-1",
		Actor:   Actor{UserID: uint64Ptr(1)},
	})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
}

func TestOrderServiceSetTrackingShipsProcessingOrder(t *testing.T) {
	var tracking repositories.TrackingUpdate
	var transitioned domain.OrderStatus
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusProcessing}, nil
		},
		updateTrackingFunc: func(ctx context.Context, orderID uint64, update repositories.TrackingUpdate) error {
			tracking = update
			return nil
		},
		updateStatusFunc: func(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
			transitioned = next
			return nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.SetTracking(context.Background(), SetTrackingCommand{
		OrderID: 55,
		Number:  "TRK-1",
		Carrier: "colissimo",
		Actor:   Actor{Role: domain.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracking.Number != "TRK-1" || tracking.Carrier != "colissimo" {
		t.Fatalf("unexpected tracking update %#v", tracking)
	}
	if transitioned != domain.OrderStatusShipped {
		t.Fatalf("expected automatic transition to shipped, got %s", transitioned)
	}
}

func TestOrderServiceMarkPaidFromPending(t *testing.T) {
	var from, to domain.OrderStatus
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusPending}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
			from, to = expected, next
			return nil
		},
	}
	audit := &stubAuditService{}

	service := newOrderServiceWithAudit(t, orders, audit)
	_, err := service.MarkPaid(context.Background(), MarkPaidCommand{
		OrderID:   55,
		PaymentID: 9,
		Provider:  "stripe",
		Reference: "pi_123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != domain.OrderStatusPending || to != domain.OrderStatusPaid {
		t.Fatalf("expected pending -> paid guard, got %s -> %s", from, to)
	}
	if len(audit.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audit.records))
	}
	if audit.records[0].Action != "order.paid" {
		t.Fatalf("unexpected audit action %q", audit.records[0].Action)
	}
}

func TestOrderServiceMarkPaidIdempotent(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusPaid}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
			t.Fatalf("replayed settlement must not write")
			return nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	order, err := service.MarkPaid(context.Background(), MarkPaidCommand{OrderID: 55, Provider: "stripe", Reference: "pi_123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order returned, got %s", order.Status)
	}
}

func TestOrderServiceMarkPaidRejectsNonPending(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID uint64) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: uint64Ptr(1), Status: domain.OrderStatusProcessing}, nil
		},
	}

	service := newOrderService(t, orders, &stubCartRepository{}, &stubAddressRepository{}, &stubInventoryService{}, nil, nil)
	_, err := service.MarkPaid(context.Background(), MarkPaidCommand{OrderID: 55, Provider: "stripe", Reference: "pi_123"})
	if !errors.Is(err, ErrOrderInvalidTransition) {
		t.Fatalf("expected ErrOrderInvalidTransition, got %v", err)
	}
}

func newOrderService(t *testing.T, orders repositories.OrderRepository, carts repositories.CartRepository, addresses repositories.AddressRepository, inventory InventoryService, events OrderEventPublisher, clock func() time.Time) OrderService {
	t.Helper()
	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		Carts:      carts,
		Addresses:  addresses,
		Catalog:    orderCatalogFixture(),
		Inventory:  inventory,
		UnitOfWork: &stubUnitOfWork{},
		Events:     events,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	return service
}

func newOrderServiceWithAudit(t *testing.T, orders repositories.OrderRepository, audit AuditLogService) OrderService {
	t.Helper()
	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		Carts:      &stubCartRepository{},
		Addresses:  &stubAddressRepository{},
		Catalog:    orderCatalogFixture(),
		Inventory:  &stubInventoryService{},
		UnitOfWork: &stubUnitOfWork{},
		Audit:      audit,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	return service
}

type stubOrderRepository struct {
	insertFunc         func(ctx context.Context, order domain.Order) (domain.Order, error)
	findFunc           func(ctx context.Context, orderID uint64) (domain.Order, error)
	listFunc           func(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error)
	updateStatusFunc   func(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error
	updateTrackingFunc func(ctx context.Context, orderID uint64, update repositories.TrackingUpdate) error
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, order)
	}
	return order, nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID uint64) (domain.Order, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, orderID)
	}
	return domain.Order{ID: orderID}, nil
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderRepository) UpdateStatus(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, orderID, expected, next, update)
	}
	return nil
}

func (s *stubOrderRepository) UpdateTracking(ctx context.Context, orderID uint64, update repositories.TrackingUpdate) error {
	if s.updateTrackingFunc != nil {
		return s.updateTrackingFunc(ctx, orderID, update)
	}
	return nil
}

type stubAddressRepository struct {
	listFunc   func(ctx context.Context, userID uint64) ([]domain.Address, error)
	getFunc    func(ctx context.Context, userID, addressID uint64) (domain.Address, error)
	insertFunc func(ctx context.Context, addr domain.Address) (domain.Address, error)
	updateFunc func(ctx context.Context, addr domain.Address) (domain.Address, error)
	deleteFunc func(ctx context.Context, userID, addressID uint64) error
}

func (s *stubAddressRepository) List(ctx context.Context, userID uint64) ([]domain.Address, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID)
	}
	return nil, nil
}

func (s *stubAddressRepository) Get(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID, addressID)
	}
	return domain.Address{}, &repositoryErrorStub{notFound: true}
}

func (s *stubAddressRepository) Insert(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, addr)
	}
	return addr, nil
}

func (s *stubAddressRepository) Update(ctx context.Context, addr domain.Address) (domain.Address, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, addr)
	}
	return addr, nil
}

func (s *stubAddressRepository) Delete(ctx context.Context, userID, addressID uint64) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID, addressID)
	}
	return nil
}

type stubInventoryService struct {
	syncFunc      func(ctx context.Context, cmd SyncStockCommand) (StockSyncResult, error)
	decrementFunc func(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error)
	incrementFunc func(ctx context.Context, cmd IncrementStockCommand) (StockMovement, error)
}

func (s *stubInventoryService) SyncStock(ctx context.Context, cmd SyncStockCommand) (StockSyncResult, error) {
	if s.syncFunc != nil {
		return s.syncFunc(ctx, cmd)
	}
	return StockSyncResult{}, nil
}

func (s *stubInventoryService) DecrementStock(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error) {
	if s.decrementFunc != nil {
		return s.decrementFunc(ctx, cmd)
	}
	return StockMovement{}, nil
}

func (s *stubInventoryService) IncrementStock(ctx context.Context, cmd IncrementStockCommand) (StockMovement, error) {
	if s.incrementFunc != nil {
		return s.incrementFunc(ctx, cmd)
	}
	return StockMovement{}, nil
}

func (s *stubInventoryService) ListMovements(ctx context.Context, filter MovementListFilter) (Page[StockMovement], error) {
	return Page[StockMovement]{}, nil
}

func (s *stubInventoryService) GetMovement(ctx context.Context, movementID uint64) (StockMovement, error) {
	return StockMovement{}, nil
}

type stubEventPublisher struct {
	published []OrderStatusChangedEvent
	err       error
}

func (s *stubEventPublisher) PublishStatusChanged(ctx context.Context, event OrderStatusChangedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, event)
	return nil
}
