package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"github.com/otcheredev/patient-queue-service/internal/repository"
	"gorm.io/gorm"
)

// QueueStore is the persistence surface the scheduler depends on.
// Methods taking a *gorm.DB run inside a transaction owned by the
// scheduler; the rest are single reads.
type QueueStore interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	ListEntries(ctx context.Context, f repository.EntryFilter, now time.Time) ([]models.QueueEntry, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (*models.QueueEntry, error)
	GetByIDForUpdate(tx *gorm.DB, tenantID, id uuid.UUID) (*models.QueueEntry, error)
	LowestWaitingForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (*models.QueueEntry, error)
	MaxWaitingPosition(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (int, error)
	Create(tx *gorm.DB, entry *models.QueueEntry) error
	Update(tx *gorm.DB, entry *models.QueueEntry) error
	CountWaiting(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error)
	CountByStatusSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, status models.QueueStatus, since time.Time) (int, error)
	AverageWaitSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error)
	AverageEstimatedWait(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error)
	PeakHourSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error)
}

// DepartmentStore is the persistence surface for department lookups
type DepartmentStore interface {
	List(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]models.Department, error)
	GetByNameForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, name string) (*models.Department, error)
	EnsureDefaults(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error)
}

// AuditStore records and reads back queue mutations
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
	GetByResourceID(ctx context.Context, tenantID uuid.UUID, resourceID string) ([]models.AuditLog, error)
}
