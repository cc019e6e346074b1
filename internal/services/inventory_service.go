package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/metrics"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryInsufficientStock indicates the requested quantity exceeds availability.
	ErrInventoryInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInventoryNotFound indicates the stockable entity or movement could not be located.
	ErrInventoryNotFound = errors.New("inventory: not found")
)

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Inventory   repositories.InventoryRepository
	UnitOfWork  repositories.UnitOfWork
	Audit       AuditLogService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	repo   repositories.InventoryRepository
	uow    repositories.UnitOfWork
	audit  AuditLogService
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("inventory service: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		repo:  deps.Inventory,
		uow:   deps.UnitOfWork,
		audit: deps.Audit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *inventoryService) SyncStock(ctx context.Context, cmd SyncStockCommand) (StockSyncResult, error) {
	if cmd.Ref.IsZero() {
		return StockSyncResult{}, fmt.Errorf("%w: purchasable ref is required", ErrInventoryInvalidInput)
	}
	if cmd.Quantity < 0 {
		return StockSyncResult{}, fmt.Errorf("%w: target quantity %d", ErrInventoryInsufficientStock, cmd.Quantity)
	}
	if cmd.OverrideStatus != "" && !domain.ValidStockStatus(cmd.OverrideStatus) {
		return StockSyncResult{}, fmt.Errorf("%w: unknown stock status %q", ErrInventoryInvalidInput, cmd.OverrideStatus)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = domain.StockReasonManualSync
	}

	var result StockSyncResult
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.repo.LockStock(ctx, cmd.Ref)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		sync := domain.ComputeStockSync(state.Quantity, state.Status, cmd.Quantity, cmd.OverrideStatus)
		if sync.NoOp {
			result = StockSyncResult{NoOp: true, Quantity: sync.Quantity, Status: sync.Status}
			return nil
		}

		if err := s.repo.SaveStock(ctx, cmd.Ref, sync.Quantity, sync.Status); err != nil {
			return s.mapRepositoryError(err)
		}

		movement, err := s.appendMovement(ctx, cmd.Ref, sync.Delta, sync.Quantity, reason, cmd.Description, cmd.Metadata, cmd.Actor)
		if err != nil {
			return err
		}
		result = StockSyncResult{Movement: movement, Quantity: sync.Quantity, Status: sync.Status}
		return nil
	})
	if err != nil {
		return StockSyncResult{}, err
	}

	if result.NoOp {
		s.logger(ctx, "inventory.sync.noop", map[string]any{
			"stockable": cmd.Ref.String(),
			"quantity":  result.Quantity,
		})
		return result, nil
	}

	metrics.RecordStockMovement(reason)
	s.logger(ctx, "inventory.sync", map[string]any{
		"stockable": cmd.Ref.String(),
		"delta":     result.Movement.Quantity,
		"balance":   result.Movement.BalanceAfter,
		"status":    string(result.Status),
	})
	s.recordAudit(ctx, cmd.Actor, "inventory.sync", cmd.Ref, result.Movement)
	return result, nil
}

func (s *inventoryService) DecrementStock(ctx context.Context, cmd DecrementStockCommand) (StockMovement, error) {
	if cmd.Ref.IsZero() {
		return StockMovement{}, fmt.Errorf("%w: purchasable ref is required", ErrInventoryInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return StockMovement{}, fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = domain.StockReasonOrderCreated
	}

	var movement StockMovement
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.repo.LockStock(ctx, cmd.Ref)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		dec, err := domain.ComputeStockDecrement(state.Quantity, cmd.Quantity)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return fmt.Errorf("%w: %s has %d, requested %d",
					ErrInventoryInsufficientStock, cmd.Ref, state.Quantity, cmd.Quantity)
			}
			return fmt.Errorf("%w: %v", ErrInventoryInvalidInput, err)
		}

		if err := s.repo.SaveStock(ctx, cmd.Ref, dec.Quantity, dec.Status); err != nil {
			return s.mapRepositoryError(err)
		}

		movement, err = s.appendMovement(ctx, cmd.Ref, dec.Delta, dec.Quantity, reason, cmd.Description, cmd.Metadata, cmd.Actor)
		return err
	})
	if err != nil {
		return StockMovement{}, err
	}

	metrics.RecordStockMovement(reason)
	s.logger(ctx, "inventory.decrement", map[string]any{
		"stockable": cmd.Ref.String(),
		"delta":     movement.Quantity,
		"balance":   movement.BalanceAfter,
	})
	return movement, nil
}

func (s *inventoryService) IncrementStock(ctx context.Context, cmd IncrementStockCommand) (StockMovement, error) {
	if cmd.Ref.IsZero() {
		return StockMovement{}, fmt.Errorf("%w: purchasable ref is required", ErrInventoryInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return StockMovement{}, fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = domain.StockReasonRestock
	}

	var movement StockMovement
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.repo.LockStock(ctx, cmd.Ref)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		quantity := state.Quantity + cmd.Quantity
		status := state.Status
		if status != domain.StockStatusPreorder {
			status = domain.StockStatusInStock
		}

		if err := s.repo.SaveStock(ctx, cmd.Ref, quantity, status); err != nil {
			return s.mapRepositoryError(err)
		}

		movement, err = s.appendMovement(ctx, cmd.Ref, cmd.Quantity, quantity, reason, cmd.Description, cmd.Metadata, cmd.Actor)
		return err
	})
	if err != nil {
		return StockMovement{}, err
	}

	metrics.RecordStockMovement(reason)
	s.logger(ctx, "inventory.increment", map[string]any{
		"stockable": cmd.Ref.String(),
		"delta":     movement.Quantity,
		"balance":   movement.BalanceAfter,
	})
	return movement, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter MovementListFilter) (Page[StockMovement], error) {
	page, err := s.repo.ListMovements(ctx, repositories.MovementListFilter{
		Stockable: filter.Stockable,
		Reason:    filter.Reason,
		Page:      filter.Page,
		PerPage:   filter.PerPage,
	})
	if err != nil {
		return Page[StockMovement]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) GetMovement(ctx context.Context, movementID uint64) (StockMovement, error) {
	if movementID == 0 {
		return StockMovement{}, fmt.Errorf("%w: movement id is required", ErrInventoryInvalidInput)
	}
	movement, err := s.repo.GetMovement(ctx, movementID)
	if err != nil {
		return StockMovement{}, s.mapRepositoryError(err)
	}
	return movement, nil
}

func (s *inventoryService) appendMovement(ctx context.Context, ref PurchasableRef, delta, balance int64, reason, description string, metadata map[string]any, actor Actor) (StockMovement, error) {
	movement := domain.StockMovement{
		Reference:    s.newID(),
		Stockable:    ref,
		UserID:       actor.UserID,
		Quantity:     delta,
		BalanceAfter: balance,
		Reason:       reason,
		Description:  description,
		Metadata:     metadata,
		CreatedAt:    s.clock(),
	}
	saved, err := s.repo.AppendMovement(ctx, movement)
	if err != nil {
		return StockMovement{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

func (s *inventoryService) recordAudit(ctx context.Context, actor Actor, action string, ref PurchasableRef, movement StockMovement) {
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
		TargetRef: ref.String(),
		Metadata: map[string]any{
			"movement_id":   movement.ID,
			"delta":         movement.Quantity,
			"balance_after": movement.BalanceAfter,
			"reason":        movement.Reason,
		},
	})
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return fmt.Errorf("%w: %v", ErrInventoryNotFound, err)
		}
	}
	return err
}
