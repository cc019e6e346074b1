package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/metrics"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the actor may not access the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidTransition indicates the status pair is not in the workflow table.
	ErrOrderInvalidTransition = errors.New("order: invalid transition")
	// ErrOrderCartNotActive indicates the cart was already consumed or is missing.
	ErrOrderCartNotActive = errors.New("order: cart is not active")
	// ErrOrderEmptyCart indicates the cart holds no lines.
	ErrOrderEmptyCart = errors.New("order: cart is empty")
	// ErrOrderConflict indicates a concurrent mutation won the race.
	ErrOrderConflict = errors.New("order: concurrent update")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Carts      repositories.CartRepository
	Addresses  repositories.AddressRepository
	Catalog    repositories.CatalogRepository
	Inventory  InventoryService
	UnitOfWork repositories.UnitOfWork
	Events     OrderEventPublisher
	Audit      AuditLogService
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	carts     repositories.CartRepository
	addresses repositories.AddressRepository
	catalog   repositories.CatalogRepository
	inventory InventoryService
	uow       repositories.UnitOfWork
	events    OrderEventPublisher
	audit     AuditLogService
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("order service: address repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:    deps.Orders,
		carts:     deps.Carts,
		addresses: deps.Addresses,
		catalog:   deps.Catalog,
		inventory: deps.Inventory,
		uow:       deps.UnitOfWork,
		events:    deps.Events,
		audit:     deps.Audit,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if cmd.Identity.UserID == nil {
		return Order{}, fmt.Errorf("%w: an authenticated user is required to place an order", ErrOrderInvalidInput)
	}
	if cmd.ShippingAddressID == 0 || cmd.BillingAddressID == 0 {
		return Order{}, fmt.Errorf("%w: shipping and billing addresses are required", ErrOrderInvalidInput)
	}
	userID := *cmd.Identity.UserID

	// Optimistic precondition check before taking any locks.
	cart, err := s.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return Order{}, ErrOrderCartNotActive
		}
		return Order{}, err
	}
	if cart.Status != domain.CartStatusActive {
		return Order{}, ErrOrderCartNotActive
	}
	if len(cart.Items) == 0 {
		return Order{}, ErrOrderEmptyCart
	}

	var order Order
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.carts.LockCart(ctx, cart.ID)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderCartNotActive
			}
			return err
		}
		// Re-validate under the lock: a concurrent checkout may have won.
		if locked.Status != domain.CartStatusActive {
			return ErrOrderCartNotActive
		}
		if len(locked.Items) == 0 {
			return ErrOrderEmptyCart
		}

		shipping, err := s.loadAddress(ctx, userID, cmd.ShippingAddressID, "shipping")
		if err != nil {
			return err
		}
		billing, err := s.loadAddress(ctx, userID, cmd.BillingAddressID, "billing")
		if err != nil {
			return err
		}

		totals := computeTotals(locked)
		now := s.clock()

		draft := domain.Order{
			UserID:            &userID,
			CartID:            locked.ID,
			Status:            domain.OrderStatusPending,
			Totals:            totals,
			ShippingAddressID: shipping.ID,
			BillingAddressID:  billing.ID,
			ShippingAddress:   shipping,
			BillingAddress:    billing,
			PlacedAt:          now,
		}
		// The snapshot must outlive catalogue edits, so sku and name are
		// copied from the purchasable at placement time.
		for _, line := range locked.Items {
			purchasable, err := s.resolvePurchasable(ctx, line.Purchasable)
			if err != nil {
				return err
			}
			draft.Items = append(draft.Items, domain.OrderItem{
				Purchasable: line.Purchasable,
				SKU:         purchasable.SKU,
				Name:        purchasable.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.UnitPrice.Mul(line.Quantity),
				Currency:    line.Currency,
				Metadata:    map[string]any{"cart_item_id": line.ID},
			})
		}

		order, err = s.orders.Insert(ctx, draft)
		if err != nil {
			return err
		}

		// Decrement every line through the ledger; any shortfall aborts the
		// whole transaction, so no partial order survives.
		for _, line := range locked.Items {
			_, err := s.inventory.DecrementStock(ctx, DecrementStockCommand{
				Ref:      line.Purchasable,
				Quantity: line.Quantity,
				Reason:   domain.StockReasonOrderCreated,
				Metadata: map[string]any{
					"order_id":    order.ID,
					"cart_id":     locked.ID,
					"purchasable": line.Purchasable.String(),
				},
				Actor: cmd.Actor,
			})
			if err != nil {
				return err
			}
		}

		if err := s.carts.MarkOrdered(ctx, locked.ID); err != nil {
			if isConflict(err) {
				return ErrOrderCartNotActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		metrics.RecordOrderOperation("create", false)
		return Order{}, err
	}

	metrics.RecordOrderOperation("create", true)
	s.logger(ctx, "order.created", map[string]any{
		"order_id":    order.ID,
		"cart_id":     order.CartID,
		"user_id":     userID,
		"grand_total": order.Totals.GrandTotal.String(),
		"currency":    order.Totals.Currency,
	})
	s.recordAudit(ctx, cmd.Actor, "order.create", order.ID, map[string]any{
		"cart_id":     order.CartID,
		"grand_total": order.Totals.GrandTotal.String(),
		"items":       len(order.Items),
	})
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uint64, actor Actor) (Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := s.authorize(order, actor); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (Page[Order], error) {
	userID := filter.UserID
	if !filter.Actor.IsAdmin() {
		// Customers only ever see their own orders.
		if filter.Actor.UserID == nil {
			return Page[Order]{}, fmt.Errorf("%w: authentication required", ErrOrderForbidden)
		}
		userID = filter.Actor.UserID
	}
	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:   userID,
		Statuses: filter.Statuses,
		From:     filter.From,
		To:       filter.To,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	})
	if err != nil {
		return Page[Order]{}, err
	}
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
	if !domain.ValidOrderStatus(cmd.Next) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Next)
	}

	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := s.authorize(order, cmd.Actor); err != nil {
		return Order{}, err
	}

	return s.transition(ctx, order, cmd.Next, cmd.Reason, cmd.Actor)
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by request"
	}
	return s.TransitionStatus(ctx, TransitionOrderCommand{
		OrderID: cmd.OrderID,
		Next:    domain.OrderStatusCancelled,
		Reason:  reason,
		Actor:   cmd.Actor,
	})
}

func (s *orderService) SetTracking(ctx context.Context, cmd SetTrackingCommand) (Order, error) {
	if cmd.Number == "" {
		return Order{}, fmt.Errorf("%w: tracking number is required", ErrOrderInvalidInput)
	}

	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !cmd.Actor.IsAdmin() {
		return Order{}, fmt.Errorf("%w: tracking updates are a back-office operation", ErrOrderForbidden)
	}

	err = s.orders.UpdateTracking(ctx, order.ID, repositories.TrackingUpdate{
		Number:  cmd.Number,
		Carrier: cmd.Carrier,
		URL:     cmd.URL,
	})
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}

	// Recording a tracking number while the order is being prepared means it
	// just left the warehouse.
	if order.Status == domain.OrderStatusProcessing {
		return s.transition(ctx, order, domain.OrderStatusShipped, "tracking recorded", cmd.Actor)
	}
	return s.load(ctx, order.ID)
}

func (s *orderService) MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := s.authorize(order, cmd.Actor); err != nil {
		return Order{}, err
	}
	return s.transition(ctx, order, domain.OrderStatusDelivered, "marked delivered", cmd.Actor)
}

// MarkPaid moves a pending order to paid when a payment settles. This is a
// deliberate, audited side channel: the workflow table has no inbound edge to
// paid, and only verified webhook handling may call it.
func (s *orderService) MarkPaid(ctx context.Context, cmd MarkPaidCommand) (Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status == domain.OrderStatusPaid {
		// Webhook retries settle the same payment more than once.
		return order, nil
	}
	if order.Status != domain.OrderStatusPending {
		return Order{}, fmt.Errorf("%w: %s -> %s",
			ErrOrderInvalidTransition, order.Status, domain.OrderStatusPaid)
	}

	err = s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid, repositories.OrderStatusUpdate{})
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}

	metrics.RecordOrderOperation("mark_paid", true)
	s.recordAudit(ctx, Actor{Label: "provider:" + cmd.Provider}, "order.paid", order.ID, map[string]any{
		"payment_id": cmd.PaymentID,
		"provider":   cmd.Provider,
		"reference":  cmd.Reference,
		"old_status": string(domain.OrderStatusPending),
		"new_status": string(domain.OrderStatusPaid),
	})
	s.publish(ctx, order, domain.OrderStatusPending, domain.OrderStatusPaid, "payment settled")

	return s.load(ctx, order.ID)
}

func (s *orderService) transition(ctx context.Context, order Order, next domain.OrderStatus, reason string, actor Actor) (Order, error) {
	if !domain.CanTransition(order.Status, next) {
		metrics.RecordOrderOperation("transition", false)
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, next)
	}

	update := repositories.OrderStatusUpdate{}
	now := s.clock()
	switch next {
	case domain.OrderStatusShipped:
		update.ShippedAt = &now
	case domain.OrderStatusDelivered:
		update.DeliveredAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, order.Status, next, update); err != nil {
		metrics.RecordOrderOperation("transition", false)
		return Order{}, s.mapOrderError(err)
	}

	metrics.RecordOrderOperation("transition", true)
	s.logger(ctx, "order.status.changed", map[string]any{
		"order_id":   order.ID,
		"old_status": string(order.Status),
		"new_status": string(next),
		"reason":     reason,
	})
	s.recordAudit(ctx, actor, "order.transition", order.ID, map[string]any{
		"old_status": string(order.Status),
		"new_status": string(next),
		"reason":     reason,
	})
	s.publish(ctx, order, order.Status, next, reason)

	return s.load(ctx, order.ID)
}

// publish raises the status-changed event. Delivery failure is logged and
// swallowed; it never affects the transition that raised it.
func (s *orderService) publish(ctx context.Context, order Order, from, to domain.OrderStatus, reason string) {
	if s.events == nil {
		return
	}
	event := OrderStatusChangedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		OldStatus:  from,
		NewStatus:  to,
		Reason:     reason,
		OccurredAt: s.clock(),
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *orderService) load(ctx context.Context, orderID uint64) (Order, error) {
	if orderID == 0 {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapOrderError(err)
	}
	return order, nil
}

func (s *orderService) resolvePurchasable(ctx context.Context, ref domain.PurchasableRef) (domain.Purchasable, error) {
	purchasable, err := s.catalog.ResolvePurchasable(ctx, ref)
	if err != nil {
		if isNotFound(err) {
			return domain.Purchasable{}, fmt.Errorf("%w: purchasable %s no longer exists", ErrOrderInvalidInput, ref)
		}
		return domain.Purchasable{}, err
	}
	return purchasable, nil
}

func (s *orderService) loadAddress(ctx context.Context, userID, addressID uint64, kind string) (Address, error) {
	addr, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		if isNotFound(err) {
			return Address{}, fmt.Errorf("%w: %s address %d", ErrOrderInvalidInput, kind, addressID)
		}
		return Address{}, err
	}
	return addr, nil
}

func (s *orderService) authorize(order Order, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.UserID != nil && order.UserID != nil && *actor.UserID == *order.UserID {
		return nil
	}
	return fmt.Errorf("%w: order %d", ErrOrderForbidden, order.ID)
}

func (s *orderService) recordAudit(ctx context.Context, actor Actor, action string, orderID uint64, metadata map[string]any) {
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
		TargetRef: "orders/" + strconv.FormatUint(orderID, 10),
		Metadata:  metadata,
	})
}

func (s *orderService) mapOrderError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %v", ErrOrderConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func computeTotals(cart Cart) domain.OrderTotals {
	var subtotal domain.Cents
	for _, line := range cart.Items {
		subtotal += line.UnitPrice.Mul(line.Quantity)
	}
	// Discounts, shipping, and tax are settled outside this workflow for now.
	return domain.OrderTotals{
		Currency:   cart.Currency,
		Subtotal:   subtotal,
		GrandTotal: subtotal,
	}
}
