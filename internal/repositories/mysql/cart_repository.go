package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
)

type cartRepository struct {
	registry *Registry
}

func (r *cartRepository) FindActiveByUser(ctx context.Context, userID uint64) (domain.Cart, error) {
	const op = "carts.find_active_by_user"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	var m cartModel
	err = db.Where("user_id = ? AND status = ?", userID, string(domain.CartStatusActive)).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	return r.loadCart(ctx, db, m)
}

func (r *cartRepository) FindActiveByGuestToken(ctx context.Context, token string) (domain.Cart, error) {
	const op = "carts.find_active_by_guest_token"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	var m cartModel
	err = db.Where("guest_token = ? AND user_id IS NULL AND status = ?", token, string(domain.CartStatusActive)).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	return r.loadCart(ctx, db, m)
}

func (r *cartRepository) Insert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	const op = "carts.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	m := cartModel{
		UserID:     cart.UserID,
		GuestToken: cart.GuestToken,
		Currency:   cart.Currency,
		Status:     string(cart.Status),
	}
	if m.Status == "" {
		m.Status = string(domain.CartStatusActive)
	}
	if err := db.Create(&m).Error; err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	return m.toDomain(nil), nil
}

func (r *cartRepository) LockCart(ctx context.Context, cartID uint64) (domain.Cart, error) {
	const op = "carts.lock"

	if _, ok := database.TxFromContext(ctx); !ok {
		return domain.Cart{}, database.NewConflict(op, "cart locks require a unit of work")
	}

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	var m cartModel
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", cartID).Error
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}

	var items []cartItemModel
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	return m.toDomain(items), nil
}

func (r *cartRepository) GetCart(ctx context.Context, cartID uint64) (domain.Cart, error) {
	const op = "carts.get"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	var m cartModel
	if err := db.First(&m, "id = ?", cartID).Error; err != nil {
		return domain.Cart{}, database.WrapError(op, err)
	}
	return r.loadCart(ctx, db, m)
}

func (r *cartRepository) UpdateCurrency(ctx context.Context, cartID uint64, currency string) error {
	const op = "carts.update_currency"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Model(&cartModel{}).Where("id = ?", cartID).Update("currency", currency)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	return nil
}

func (r *cartRepository) MarkOrdered(ctx context.Context, cartID uint64) error {
	const op = "carts.mark_ordered"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Model(&cartModel{}).
		Where("id = ? AND status = ?", cartID, string(domain.CartStatusActive)).
		Update("status", string(domain.CartStatusOrdered))
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewConflict(op, fmt.Sprintf("cart %d is not active", cartID))
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID uint64) error {
	const op = "carts.delete"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	if err := db.Delete(&cartItemModel{}, "cart_id = ?", cartID).Error; err != nil {
		return database.WrapError(op, err)
	}
	result := db.Delete(&cartModel{}, "id = ?", cartID)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("cart %d not found", cartID))
	}
	return nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	const op = "carts.upsert_item"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.CartItem{}, database.WrapError(op, err)
	}
	m := cartItemToModel(item)
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "cart_id"},
			{Name: "purchasable_kind"},
			{Name: "purchasable_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "unit_price_cents", "currency", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return domain.CartItem{}, database.WrapError(op, err)
	}

	// Reload by the line key: on conflict updates the id of m is not reliable.
	var saved cartItemModel
	err = db.Where("cart_id = ? AND purchasable_kind = ? AND purchasable_id = ?",
		m.CartID, m.PurchasableKind, m.PurchasableID).
		Take(&saved).Error
	if err != nil {
		return domain.CartItem{}, database.WrapError(op, err)
	}
	return saved.toDomain(), nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uint64, quantity int64) error {
	const op = "carts.update_item_quantity"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Model(&cartItemModel{}).Where("id = ?", itemID).Update("quantity", quantity)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("cart item %d not found", itemID))
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uint64) error {
	const op = "carts.delete_item"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Delete(&cartItemModel{}, "id = ?", itemID)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("cart item %d not found", itemID))
	}
	return nil
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uint64) error {
	const op = "carts.delete_items"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	if err := db.Delete(&cartItemModel{}, "cart_id = ?", cartID).Error; err != nil {
		return database.WrapError(op, err)
	}
	return nil
}

func (r *cartRepository) loadCart(ctx context.Context, db *gorm.DB, m cartModel) (domain.Cart, error) {
	var items []cartItemModel
	err := db.Where("cart_id = ?", m.ID).Order("id ASC").Find(&items).Error
	if err != nil {
		return domain.Cart{}, database.WrapError("carts.load_items", err)
	}
	return m.toDomain(items), nil
}
