package mysql

import (
	"context"
	"fmt"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
)

type addressRepository struct {
	registry *Registry
}

func (r *addressRepository) List(ctx context.Context, userID uint64) ([]domain.Address, error) {
	const op = "addresses.list"

	db, err := r.registry.session(ctx)
	if err != nil {
		return nil, database.WrapError(op, err)
	}
	var models []addressModel
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, database.WrapError(op, err)
	}
	addresses := make([]domain.Address, 0, len(models))
	for _, m := range models {
		addresses = append(addresses, m.toDomain())
	}
	return addresses, nil
}

func (r *addressRepository) Get(ctx context.Context, userID, addressID uint64) (domain.Address, error) {
	const op = "addresses.get"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	var m addressModel
	if err := db.First(&m, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *addressRepository) Insert(ctx context.Context, addr domain.Address) (domain.Address, error) {
	const op = "addresses.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	m := addressToModel(addr)
	if err := db.Create(&m).Error; err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *addressRepository) Update(ctx context.Context, addr domain.Address) (domain.Address, error) {
	const op = "addresses.update"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	var existing addressModel
	if err := db.First(&existing, "id = ? AND user_id = ?", addr.ID, addr.UserID).Error; err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	m := addressToModel(addr)
	m.CreatedAt = existing.CreatedAt
	if err := db.Save(&m).Error; err != nil {
		return domain.Address{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *addressRepository) Delete(ctx context.Context, userID, addressID uint64) error {
	const op = "addresses.delete"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Delete(&addressModel{}, "id = ? AND user_id = ?", addressID, userID)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("address %d not found", addressID))
	}
	return nil
}
