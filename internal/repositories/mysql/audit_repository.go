package mysql

import (
	"context"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type auditLogRepository struct {
	registry *Registry
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	const op = "audit_logs.append"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	m := auditToModel(entry)
	if err := db.Create(&m).Error; err != nil {
		return database.WrapError(op, err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.Page[domain.AuditLogEntry], error) {
	const op = "audit_logs.list"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Page[domain.AuditLogEntry]{}, database.WrapError(op, err)
	}

	query := db.Model(&auditLogModel{})
	if filter.TargetRef != "" {
		query = query.Where("target_ref = ?", filter.TargetRef)
	}
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.Page[domain.AuditLogEntry]{}, database.WrapError(op, err)
	}

	limit, offset := pageWindow(filter.Page, filter.PerPage)
	var models []auditLogModel
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return domain.Page[domain.AuditLogEntry]{}, database.WrapError(op, err)
	}

	page := domain.Page[domain.AuditLogEntry]{
		Total:      total,
		PerPage:    limit,
		PageNumber: offset/limit + 1,
	}
	for _, m := range models {
		page.Items = append(page.Items, m.toDomain())
	}
	return page, nil
}
