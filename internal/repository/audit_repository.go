package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/otcheredev/patient-queue-service/internal/database"
	"github.com/otcheredev/patient-queue-service/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := database.DB.WithContext(ctx).Create(log).Error; err != nil {
		return apperr.Storage(err, "create audit log")
	}
	return nil
}

// GetByTenantID retrieves a tenant's audit logs, newest first
func (r *AuditRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := database.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, apperr.Storage(err, "list audit logs")
	}

	return logs, nil
}

// GetByResourceID retrieves the audit trail of one resource, newest first
func (r *AuditRepository) GetByResourceID(ctx context.Context, tenantID uuid.UUID, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := database.DB.WithContext(ctx).
		Where("tenant_id = ? AND resource_id = ?", tenantID, resourceID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, apperr.Storage(err, "list audit logs")
	}
	return logs, nil
}
