package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func TestInventoryServiceSyncStockRecordsMovement(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ref := domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 7}

	var savedQty int64
	var savedStatus domain.StockStatus
	var appended domain.StockMovement
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			if got != ref {
				t.Fatalf("unexpected ref %v", got)
			}
			return repositories.StockState{Ref: ref, Quantity: 3, Status: domain.StockStatusInStock}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			savedQty = quantity
			savedStatus = status
			return nil
		},
		appendFunc: func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
			appended = movement
			movement.ID = 42
			return movement, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:   repo,
		UnitOfWork:  &stubUnitOfWork{},
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "mv-1" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	result, err := service.SyncStock(context.Background(), SyncStockCommand{
		Ref:      ref,
		Quantity: 10,
		Actor:    Actor{UserID: uint64Ptr(5)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NoOp {
		t.Fatalf("expected a movement, got a no-op")
	}
	if savedQty != 10 || savedStatus != domain.StockStatusInStock {
		t.Fatalf("expected saved 10/in_stock, got %d/%s", savedQty, savedStatus)
	}
	if appended.Quantity != 7 {
		t.Fatalf("expected delta 7, got %d", appended.Quantity)
	}
	if appended.BalanceAfter != 10 {
		t.Fatalf("expected balance 10, got %d", appended.BalanceAfter)
	}
	if appended.Reason != domain.StockReasonManualSync {
		t.Fatalf("expected default reason manual_sync, got %q", appended.Reason)
	}
	if appended.Reference != "mv-1" {
		t.Fatalf("expected generated reference, got %q", appended.Reference)
	}
	if appended.UserID == nil || *appended.UserID != 5 {
		t.Fatalf("expected actor user id 5, got %v", appended.UserID)
	}
	if result.Movement.ID != 42 {
		t.Fatalf("expected assigned movement id, got %d", result.Movement.ID)
	}
}

func TestInventoryServiceSyncStockNoOpSkipsLedger(t *testing.T) {
	ref := domain.PurchasableRef{Kind: domain.PurchasableVariant, ID: 3}
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			return repositories.StockState{Ref: ref, Quantity: 4, Status: domain.StockStatusInStock}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			t.Fatalf("no-op sync must not write stock")
			return nil
		},
		appendFunc: func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
			t.Fatalf("no-op sync must not append a movement")
			return movement, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	result, err := service.SyncStock(context.Background(), SyncStockCommand{Ref: ref, Quantity: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NoOp {
		t.Fatalf("expected no-op")
	}
	if result.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", result.Quantity)
	}
}

func TestInventoryServiceSyncStockStatusOverrideWins(t *testing.T) {
	ref := domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 9}
	var savedStatus domain.StockStatus
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			return repositories.StockState{Ref: ref, Quantity: 0, Status: domain.StockStatusOutOfStock}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			savedStatus = status
			return nil
		},
		appendFunc: func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
			return movement, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	_, err = service.SyncStock(context.Background(), SyncStockCommand{
		Ref:            ref,
		Quantity:       5,
		OverrideStatus: domain.StockStatusPreorder,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedStatus != domain.StockStatusPreorder {
		t.Fatalf("expected preorder override, got %s", savedStatus)
	}
}

func TestInventoryServiceSyncStockRejectsNegativeTarget(t *testing.T) {
	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  &stubInventoryRepository{},
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	_, err = service.SyncStock(context.Background(), SyncStockCommand{
		Ref:      domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 1},
		Quantity: -2,
	})
	if !errors.Is(err, ErrInventoryInsufficientStock) {
		t.Fatalf("expected ErrInventoryInsufficientStock, got %v", err)
	}
}

func TestInventoryServiceSyncStockRejectsUnknownStatus(t *testing.T) {
	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  &stubInventoryRepository{},
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	_, err = service.SyncStock(context.Background(), SyncStockCommand{
		Ref:            domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 1},
		Quantity:       1,
		OverrideStatus: "backordered",
	})
	if !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput, got %v", err)
	}
}

func TestInventoryServiceDecrementStockInsufficient(t *testing.T) {
	ref := domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 2}
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			return repositories.StockState{Ref: ref, Quantity: 1, Status: domain.StockStatusInStock}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			t.Fatalf("insufficient decrement must not write stock")
			return nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	_, err = service.DecrementStock(context.Background(), DecrementStockCommand{Ref: ref, Quantity: 3})
	if !errors.Is(err, ErrInventoryInsufficientStock) {
		t.Fatalf("expected ErrInventoryInsufficientStock, got %v", err)
	}
}

func TestInventoryServiceDecrementStockDerivesStatus(t *testing.T) {
	ref := domain.PurchasableRef{Kind: domain.PurchasableVariant, ID: 4}
	var savedStatus domain.StockStatus
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			return repositories.StockState{Ref: ref, Quantity: 5, Status: domain.StockStatusPreorder}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			savedStatus = status
			return nil
		},
		appendFunc: func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
			return movement, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	movement, err := service.DecrementStock(context.Background(), DecrementStockCommand{Ref: ref, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedStatus != domain.StockStatusInStock {
		t.Fatalf("expected status derived from remaining quantity, got %s", savedStatus)
	}
	if movement.Quantity != -2 {
		t.Fatalf("expected delta -2, got %d", movement.Quantity)
	}
	if movement.BalanceAfter != 3 {
		t.Fatalf("expected balance 3, got %d", movement.BalanceAfter)
	}
	if movement.Reason != domain.StockReasonOrderCreated {
		t.Fatalf("expected default reason order_created, got %q", movement.Reason)
	}
}

func TestInventoryServiceIncrementStockRestoresInStock(t *testing.T) {
	ref := domain.PurchasableRef{Kind: domain.PurchasableProduct, ID: 8}
	var savedQty int64
	var savedStatus domain.StockStatus
	repo := &stubInventoryRepository{
		lockFunc: func(ctx context.Context, got domain.PurchasableRef) (repositories.StockState, error) {
			return repositories.StockState{Ref: ref, Quantity: 0, Status: domain.StockStatusOutOfStock}, nil
		},
		saveFunc: func(ctx context.Context, got domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
			savedQty = quantity
			savedStatus = status
			return nil
		},
		appendFunc: func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
			return movement, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	movement, err := service.IncrementStock(context.Background(), IncrementStockCommand{
		Ref:      ref,
		Quantity: 3,
		Reason:   domain.StockReasonReturn,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedQty != 3 || savedStatus != domain.StockStatusInStock {
		t.Fatalf("expected 3/in_stock, got %d/%s", savedQty, savedStatus)
	}
	if movement.Reason != domain.StockReasonReturn {
		t.Fatalf("expected reason return_received, got %q", movement.Reason)
	}
}

func TestInventoryServiceGetMovementNotFound(t *testing.T) {
	repo := &stubInventoryRepository{
		getMovementFunc: func(ctx context.Context, movementID uint64) (domain.StockMovement, error) {
			return domain.StockMovement{}, &repositoryErrorStub{notFound: true}
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  repo,
		UnitOfWork: &stubUnitOfWork{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	_, err = service.GetMovement(context.Background(), 99)
	if !errors.Is(err, ErrInventoryNotFound) {
		t.Fatalf("expected ErrInventoryNotFound, got %v", err)
	}
}

type stubUnitOfWork struct {
	calls int
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

type stubInventoryRepository struct {
	lockFunc          func(ctx context.Context, ref domain.PurchasableRef) (repositories.StockState, error)
	saveFunc          func(ctx context.Context, ref domain.PurchasableRef, quantity int64, status domain.StockStatus) error
	appendFunc        func(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error)
	listMovementsFunc func(ctx context.Context, filter repositories.MovementListFilter) (domain.Page[domain.StockMovement], error)
	getMovementFunc   func(ctx context.Context, movementID uint64) (domain.StockMovement, error)
}

func (s *stubInventoryRepository) LockStock(ctx context.Context, ref domain.PurchasableRef) (repositories.StockState, error) {
	if s.lockFunc != nil {
		return s.lockFunc(ctx, ref)
	}
	return repositories.StockState{}, errors.New("not implemented")
}

func (s *stubInventoryRepository) SaveStock(ctx context.Context, ref domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, ref, quantity, status)
	}
	return nil
}

func (s *stubInventoryRepository) AppendMovement(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
	if s.appendFunc != nil {
		return s.appendFunc(ctx, movement)
	}
	return movement, nil
}

func (s *stubInventoryRepository) ListMovements(ctx context.Context, filter repositories.MovementListFilter) (domain.Page[domain.StockMovement], error) {
	if s.listMovementsFunc != nil {
		return s.listMovementsFunc(ctx, filter)
	}
	return domain.Page[domain.StockMovement]{}, nil
}

func (s *stubInventoryRepository) GetMovement(ctx context.Context, movementID uint64) (domain.StockMovement, error) {
	if s.getMovementFunc != nil {
		return s.getMovementFunc(ctx, movementID)
	}
	return domain.StockMovement{}, errors.New("not implemented")
}

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string {
	return "repository error"
}

func (e *repositoryErrorStub) IsNotFound() bool {
	return e.notFound
}

func (e *repositoryErrorStub) IsConflict() bool {
	return e.conflict
}

func (e *repositoryErrorStub) IsUnavailable() bool {
	return e.unavailable
}

type stubAuditService struct {
	records []AuditLogRecord
}

func (s *stubAuditService) Record(ctx context.Context, record AuditLogRecord) {
	s.records = append(s.records, record)
}

func (s *stubAuditService) List(ctx context.Context, filter AuditLogFilter) (Page[AuditLogEntry], error) {
	return Page[AuditLogEntry]{}, nil
}
