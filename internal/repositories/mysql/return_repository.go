package mysql

import (
	"context"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type returnRepository struct {
	registry *Registry
}

func (r *returnRepository) Insert(ctx context.Context, ret domain.OrderReturn) (domain.OrderReturn, error) {
	const op = "returns.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.OrderReturn{}, database.WrapError(op, err)
	}
	m := returnToModel(ret)
	if err := db.Create(&m).Error; err != nil {
		return domain.OrderReturn{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *returnRepository) Update(ctx context.Context, ret domain.OrderReturn) error {
	const op = "returns.update"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	var existing returnModel
	if err := db.First(&existing, "id = ?", ret.ID).Error; err != nil {
		return database.WrapError(op, err)
	}
	m := returnToModel(ret)
	m.CreatedAt = existing.CreatedAt
	if err := db.Save(&m).Error; err != nil {
		return database.WrapError(op, err)
	}
	return nil
}

func (r *returnRepository) FindByID(ctx context.Context, returnID uint64) (domain.OrderReturn, error) {
	const op = "returns.find_by_id"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.OrderReturn{}, database.WrapError(op, err)
	}
	var m returnModel
	if err := db.First(&m, "id = ?", returnID).Error; err != nil {
		return domain.OrderReturn{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *returnRepository) List(ctx context.Context, filter repositories.ReturnListFilter) (domain.Page[domain.OrderReturn], error) {
	const op = "returns.list"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Page[domain.OrderReturn]{}, database.WrapError(op, err)
	}

	query := db.Model(&returnModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.Page[domain.OrderReturn]{}, database.WrapError(op, err)
	}

	limit, offset := pageWindow(filter.Page, filter.PerPage)
	var models []returnModel
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return domain.Page[domain.OrderReturn]{}, database.WrapError(op, err)
	}

	page := domain.Page[domain.OrderReturn]{
		Total:      total,
		PerPage:    limit,
		PageNumber: offset/limit + 1,
	}
	for _, m := range models {
		page.Items = append(page.Items, m.toDomain())
	}
	return page, nil
}
