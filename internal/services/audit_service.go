package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/models"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditService exposes the audit trail of queue mutations
type AuditService struct {
	auditRepo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo AuditStore) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
	}
}

// List returns a tenant's audit trail, newest first. Page size defaults
// to 50 and is capped at 200.
func (s *AuditService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.GetByTenantID(ctx, tenantID, limit, offset)
}

// ByResource returns the audit trail of one resource (e.g. a queue
// entry) within the tenant's scope
func (s *AuditService) ByResource(ctx context.Context, tenantID uuid.UUID, resourceID string) ([]models.AuditLog, error) {
	return s.auditRepo.GetByResourceID(ctx, tenantID, resourceID)
}
