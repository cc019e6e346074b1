package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type inventoryRepository struct {
	registry *Registry
}

// stockRow is the shared projection of the stock columns on products and
// product variants.
type stockRow struct {
	StockQuantity int64
	StockStatus   string
}

func stockTable(kind domain.PurchasableKind) (string, error) {
	switch kind {
	case domain.PurchasableProduct:
		return productModel{}.TableName(), nil
	case domain.PurchasableVariant:
		return variantModel{}.TableName(), nil
	default:
		return "", fmt.Errorf("unknown purchasable kind %q", kind)
	}
}

func (r *inventoryRepository) LockStock(ctx context.Context, ref domain.PurchasableRef) (repositories.StockState, error) {
	const op = "inventory.lock_stock"

	if _, ok := database.TxFromContext(ctx); !ok {
		return repositories.StockState{}, repositories.NewInventoryError(
			repositories.InventoryErrorLockRequired,
			"stock locks require a unit of work", nil)
	}

	db, err := r.registry.session(ctx)
	if err != nil {
		return repositories.StockState{}, database.WrapError(op, err)
	}
	table, err := stockTable(ref.Kind)
	if err != nil {
		return repositories.StockState{}, database.WrapError(op, err)
	}

	var row stockRow
	err = db.Table(table).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("stock_quantity", "stock_status").
		Where("id = ?", ref.ID).
		Take(&row).Error
	if err != nil {
		return repositories.StockState{}, database.WrapError(op, err)
	}
	return repositories.StockState{
		Ref:      ref,
		Quantity: row.StockQuantity,
		Status:   domain.StockStatus(row.StockStatus),
	}, nil
}

func (r *inventoryRepository) SaveStock(ctx context.Context, ref domain.PurchasableRef, quantity int64, status domain.StockStatus) error {
	const op = "inventory.save_stock"

	if _, ok := database.TxFromContext(ctx); !ok {
		return repositories.NewInventoryError(
			repositories.InventoryErrorLockRequired,
			"stock writes require a unit of work", nil)
	}

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	table, err := stockTable(ref.Kind)
	if err != nil {
		return database.WrapError(op, err)
	}

	result := db.Table(table).
		Where("id = ?", ref.ID).
		Updates(map[string]any{
			"stock_quantity": quantity,
			"stock_status":   string(status),
		})
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.NewInventoryError(
			repositories.InventoryErrorStockNotFound,
			fmt.Sprintf("stockable %s not found", ref), nil)
	}
	return nil
}

func (r *inventoryRepository) AppendMovement(ctx context.Context, movement domain.StockMovement) (domain.StockMovement, error) {
	const op = "inventory.append_movement"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.StockMovement{}, database.WrapError(op, err)
	}
	m := movementToModel(movement)
	if err := db.Create(&m).Error; err != nil {
		return domain.StockMovement{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *inventoryRepository) ListMovements(ctx context.Context, filter repositories.MovementListFilter) (domain.Page[domain.StockMovement], error) {
	const op = "inventory.list_movements"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Page[domain.StockMovement]{}, database.WrapError(op, err)
	}

	query := db.Model(&stockMovementModel{})
	if filter.Stockable != nil {
		query = query.Where("stockable_kind = ? AND stockable_id = ?",
			string(filter.Stockable.Kind), filter.Stockable.ID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.Page[domain.StockMovement]{}, database.WrapError(op, err)
	}

	limit, offset := pageWindow(filter.Page, filter.PerPage)
	var models []stockMovementModel
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return domain.Page[domain.StockMovement]{}, database.WrapError(op, err)
	}

	page := domain.Page[domain.StockMovement]{
		Total:      total,
		PerPage:    limit,
		PageNumber: offset/limit + 1,
	}
	for _, m := range models {
		page.Items = append(page.Items, m.toDomain())
	}
	return page, nil
}

func (r *inventoryRepository) GetMovement(ctx context.Context, movementID uint64) (domain.StockMovement, error) {
	const op = "inventory.get_movement"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.StockMovement{}, database.WrapError(op, err)
	}
	var m stockMovementModel
	if err := db.First(&m, "id = ?", movementID).Error; err != nil {
		return domain.StockMovement{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}
