package mysql

import (
	"context"
	"fmt"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
)

type paymentRepository struct {
	registry *Registry
}

func (r *paymentRepository) Insert(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	const op = "payments.insert"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	m := paymentToModel(payment)
	if err := db.Create(&m).Error; err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *paymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	const op = "payments.update"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	var existing paymentModel
	if err := db.First(&existing, "id = ?", payment.ID).Error; err != nil {
		return database.WrapError(op, err)
	}
	m := paymentToModel(payment)
	m.CreatedAt = existing.CreatedAt
	if err := db.Save(&m).Error; err != nil {
		return database.WrapError(op, err)
	}
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, paymentID uint64) (domain.Payment, error) {
	const op = "payments.find_by_id"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	var m paymentModel
	if err := db.First(&m, "id = ?", paymentID).Error; err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *paymentRepository) FindByProviderReference(ctx context.Context, provider, reference string) (domain.Payment, error) {
	const op = "payments.find_by_provider_reference"

	if reference == "" {
		return domain.Payment{}, database.NewNotFound(op, fmt.Sprintf("no %s payment reference", provider))
	}
	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	var m paymentModel
	err = db.Where("provider = ? AND provider_reference = ?", provider, reference).
		First(&m).Error
	if err != nil {
		return domain.Payment{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uint64) ([]domain.Payment, error) {
	const op = "payments.list_by_order"

	db, err := r.registry.session(ctx)
	if err != nil {
		return nil, database.WrapError(op, err)
	}
	var models []paymentModel
	if err := db.Where("order_id = ?", orderID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, database.WrapError(op, err)
	}
	payments := make([]domain.Payment, 0, len(models))
	for _, m := range models {
		payments = append(payments, m.toDomain())
	}
	return payments, nil
}
