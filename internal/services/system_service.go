package services

import (
	"context"
	"fmt"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type systemService struct {
	health repositories.HealthRepository
	audit  AuditLogService
	clock  func() time.Time
}

// SystemServiceDeps bundles constructor inputs for the system service.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Audit  AuditLogService
	Clock  func() time.Time
}

// NewSystemService creates the operational surface for health and audit reads.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("system service: health repository is required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("system service: audit log service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &systemService{
		health: deps.Health,
		audit:  deps.Audit,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

// HealthReport probes downstream dependencies and aggregates their status.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, fmt.Errorf("collect health report: %w", err)
	}

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.clock()
	}
	if report.Status == "" {
		report.Status = overallHealth(report.Checks)
	}
	return report, nil
}

// ListAuditLogs exposes the audit trail through the operational surface.
func (s *systemService) ListAuditLogs(ctx context.Context, filter AuditLogFilter) (Page[AuditLogEntry], error) {
	return s.audit.List(ctx, filter)
}

func overallHealth(checks map[string]domain.SystemHealthCheck) domain.HealthStatus {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusDegraded:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
