package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

const defaultAuditActorType = "unknown"

type auditLogService struct {
	repo   repositories.AuditLogRepository
	clock  func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
}

// AuditLogServiceDeps bundles constructor inputs for the audit writer service.
type AuditLogServiceDeps struct {
	Repository repositories.AuditLogRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewAuditLogService creates an audit log writer backed by the supplied repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("audit log service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &auditLogService{
		repo:   deps.Repository,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// Record persists an audit log entry. Repository failures are logged but do
// not bubble up to callers, so the mutation the entry documents is never
// interrupted by the trail itself.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	entry := s.buildEntry(record)
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger(ctx, "audit_log.append_failed", map[string]any{
			"action":     entry.Action,
			"target_ref": entry.TargetRef,
			"error":      err.Error(),
		})
	}
}

// List delegates to the repository to retrieve paginated audit trail entries.
func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (Page[AuditLogEntry], error) {
	page, err := s.repo.List(ctx, repositories.AuditLogFilter{
		TargetRef: strings.TrimSpace(filter.TargetRef),
		Actor:     strings.TrimSpace(filter.Actor),
		Action:    strings.TrimSpace(filter.Action),
		Page:      filter.Page,
		PerPage:   filter.PerPage,
	})
	if err != nil {
		return Page[AuditLogEntry]{}, err
	}
	return page, nil
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	} else {
		occurred = occurred.UTC()
	}

	actor := strings.TrimSpace(record.Actor)
	if actor == "" {
		actor = "system"
	}
	actorType := strings.TrimSpace(record.ActorType)
	if actorType == "" {
		actorType = defaultAuditActorType
	}

	return domain.AuditLogEntry{
		Actor:     actor,
		ActorType: actorType,
		Action:    strings.TrimSpace(record.Action),
		TargetRef: strings.TrimSpace(record.TargetRef),
		Metadata:  record.Metadata,
		CreatedAt: occurred,
	}
}
