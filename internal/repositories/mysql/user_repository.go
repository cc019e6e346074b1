package mysql

import (
	"context"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
)

type userRepository struct {
	registry *Registry
}

func (r *userRepository) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	const op = "users.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	m := userToModel(user)
	if err := db.Create(&m).Error; err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *userRepository) FindByID(ctx context.Context, userID uint64) (domain.User, error) {
	const op = "users.find_by_id"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	var m userModel
	if err := db.First(&m, "id = ?", userID).Error; err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	const op = "users.find_by_email"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	var m userModel
	if err := db.First(&m, "email = ?", email).Error; err != nil {
		return domain.User{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}
