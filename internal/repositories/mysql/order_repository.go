package mysql

import (
	"context"
	"fmt"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type orderRepository struct {
	registry *Registry
}

func (r *orderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	const op = "orders.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Order{}, database.WrapError(op, err)
	}

	m := orderToModel(order)
	if err := db.Create(&m).Error; err != nil {
		return domain.Order{}, database.WrapError(op, err)
	}

	items := make([]orderItemModel, 0, len(order.Items))
	for _, item := range order.Items {
		im := orderItemToModel(item)
		im.OrderID = m.ID
		items = append(items, im)
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return domain.Order{}, database.WrapError(op, err)
		}
	}
	return m.toDomain(items), nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID uint64) (domain.Order, error) {
	const op = "orders.find_by_id"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Order{}, database.WrapError(op, err)
	}
	var m orderModel
	if err := db.First(&m, "id = ?", orderID).Error; err != nil {
		return domain.Order{}, database.WrapError(op, err)
	}
	var items []orderItemModel
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return domain.Order{}, database.WrapError(op, err)
	}
	return m.toDomain(items), nil
}

func (r *orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	const op = "orders.list"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Page[domain.Order]{}, database.WrapError(op, err)
	}

	query := db.Model(&orderModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.From != nil {
		query = query.Where("placed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("placed_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.Page[domain.Order]{}, database.WrapError(op, err)
	}

	limit, offset := pageWindow(filter.Page, filter.PerPage)
	var models []orderModel
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return domain.Page[domain.Order]{}, database.WrapError(op, err)
	}

	page := domain.Page[domain.Order]{
		Total:      total,
		PerPage:    limit,
		PageNumber: offset/limit + 1,
	}
	if len(models) == 0 {
		return page, nil
	}

	ids := make([]uint64, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	var items []orderItemModel
	if err := db.Where("order_id IN ?", ids).Order("id ASC").Find(&items).Error; err != nil {
		return domain.Page[domain.Order]{}, database.WrapError(op, err)
	}
	byOrder := make(map[uint64][]orderItemModel, len(models))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for _, m := range models {
		page.Items = append(page.Items, m.toDomain(byOrder[m.ID]))
	}
	return page, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uint64, expected, next domain.OrderStatus, update repositories.OrderStatusUpdate) error {
	const op = "orders.update_status"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}

	values := map[string]any{"status": string(next)}
	if update.ShippedAt != nil {
		values["shipped_at"] = *update.ShippedAt
	}
	if update.DeliveredAt != nil {
		values["delivered_at"] = *update.DeliveredAt
	}

	result := db.Model(&orderModel{}).
		Where("id = ? AND status = ?", orderID, string(expected)).
		Updates(values)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&orderModel{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return database.WrapError(op, err)
		}
		if count == 0 {
			return database.NewNotFound(op, fmt.Sprintf("order %d not found", orderID))
		}
		return database.NewConflict(op, fmt.Sprintf("order %d is no longer %s", orderID, expected))
	}
	return nil
}

func (r *orderRepository) UpdateTracking(ctx context.Context, orderID uint64, tracking repositories.TrackingUpdate) error {
	const op = "orders.update_tracking"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Model(&orderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"tracking_number":  tracking.Number,
			"tracking_carrier": tracking.Carrier,
			"tracking_url":     tracking.URL,
		})
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&orderModel{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return database.WrapError(op, err)
		}
		if count == 0 {
			return database.NewNotFound(op, fmt.Sprintf("order %d not found", orderID))
		}
	}
	return nil
}
