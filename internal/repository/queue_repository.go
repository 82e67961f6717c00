package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/otcheredev/patient-queue-service/internal/database"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryFilter narrows a queue listing. Zero-valued fields are ignored.
type EntryFilter struct {
	TenantID   uuid.UUID
	BranchID   *uuid.UUID
	Department string
	Status     models.QueueStatus
}

// QueueRepository handles queue entry database operations
type QueueRepository struct{}

// NewQueueRepository creates a new queue repository
func NewQueueRepository() *QueueRepository {
	return &QueueRepository{}
}

// Transaction runs fn inside a database transaction
func (r *QueueRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return database.DB.WithContext(ctx).Transaction(fn)
}

// ListEntries returns queue entries matching the filter, ordered by
// ascending position. ActualWaitMinutes is recomputed from now on every
// read so it always reflects elapsed time since check-in.
func (r *QueueRepository) ListEntries(ctx context.Context, f EntryFilter, now time.Time) ([]models.QueueEntry, error) {
	query := database.DB.WithContext(ctx).Where("tenant_id = ?", f.TenantID)
	if f.BranchID != nil {
		query = query.Where("branch_id = ?", *f.BranchID)
	}
	if f.Department != "" {
		query = query.Where("department = ?", f.Department)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var entries []models.QueueEntry
	if err := query.Order("position ASC").Find(&entries).Error; err != nil {
		return nil, apperr.Storage(err, "list queue entries")
	}

	for i := range entries {
		entries[i].ActualWaitMinutes = elapsedMinutes(entries[i].CheckedInAt, now)
	}
	return entries, nil
}

// GetByID retrieves a queue entry within the tenant's scope, with
// ActualWaitMinutes recomputed from now
func (r *QueueRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := database.DB.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("queue entry", id.String())
	}
	if err != nil {
		return nil, apperr.Storage(err, "get queue entry")
	}
	entry.ActualWaitMinutes = elapsedMinutes(entry.CheckedInAt, now)
	return &entry, nil
}

// GetByIDForUpdate retrieves a queue entry with a row lock, inside tx
func (r *QueueRepository) GetByIDForUpdate(tx *gorm.DB, tenantID, id uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("queue entry", id.String())
	}
	if err != nil {
		return nil, apperr.Storage(err, "get queue entry")
	}
	return &entry, nil
}

// LowestWaitingForUpdate retrieves and locks the lowest-position waiting
// entry in a department, or NotFound when the line is empty
func (r *QueueRepository) LowestWaitingForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (*models.QueueEntry, error) {
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND department = ? AND status = ?", tenantID, department, models.StatusWaiting)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var entry models.QueueEntry
	err := query.Order("position ASC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("waiting queue entry", department)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get next waiting entry")
	}
	return &entry, nil
}

// MaxWaitingPosition returns the highest position among waiting entries in
// a department, or 0 when the line is empty. Must run inside the same
// transaction that inserts the new entry.
func (r *QueueRepository) MaxWaitingPosition(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (int, error) {
	query := tx.Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND department = ? AND status = ?", tenantID, department, models.StatusWaiting)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var max int
	if err := query.Select("COALESCE(MAX(position), 0)").Scan(&max).Error; err != nil {
		return 0, apperr.Storage(err, "get max queue position")
	}
	return max, nil
}

// Create inserts a queue entry inside tx
func (r *QueueRepository) Create(tx *gorm.DB, entry *models.QueueEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return apperr.Storage(err, "create queue entry")
	}
	return nil
}

// Update persists changed fields of an entry inside tx
func (r *QueueRepository) Update(tx *gorm.DB, entry *models.QueueEntry) error {
	if err := tx.Save(entry).Error; err != nil {
		return apperr.Storage(err, "update queue entry")
	}
	return nil
}

// CountWaiting counts waiting entries in the scope
func (r *QueueRepository) CountWaiting(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.StatusWaiting)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, apperr.Storage(err, "count waiting entries")
	}
	return int(count), nil
}

// CountByStatusSince counts entries that reached status at or after since.
// The timestamp column checked depends on the status (completed_at for
// completed, no_show_at for no-show).
func (r *QueueRepository) CountByStatusSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, status models.QueueStatus, since time.Time) (int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND status = ?", tenantID, status)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	switch status {
	case models.StatusCompleted:
		query = query.Where("completed_at >= ?", since)
	case models.StatusNoShow:
		query = query.Where("no_show_at >= ?", since)
	default:
		query = query.Where("checked_in_at >= ?", since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, apperr.Storage(err, "count entries by status")
	}
	return int(count), nil
}

// AverageWaitSince returns the mean minutes between check-in and
// completion for entries completed at or after since, floored; 0 when
// nothing has completed.
func (r *QueueRepository) AverageWaitSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND status = ? AND completed_at >= ?", tenantID, models.StatusCompleted, since)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var avg *float64
	err := query.
		Select("AVG(EXTRACT(EPOCH FROM (completed_at - checked_in_at)) / 60)").
		Scan(&avg).Error
	if err != nil {
		return 0, apperr.Storage(err, "average wait time")
	}
	if avg == nil {
		return 0, nil
	}
	return int(*avg), nil
}

// AverageEstimatedWait returns the mean precomputed wait across waiting
// entries, floored; 0 when the line is empty
func (r *QueueRepository) AverageEstimatedWait(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.StatusWaiting)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var avg *float64
	if err := query.Select("AVG(estimated_wait_minutes)").Scan(&avg).Error; err != nil {
		return 0, apperr.Storage(err, "average estimated wait")
	}
	if avg == nil {
		return 0, nil
	}
	return int(*avg), nil
}

// PeakHourSince returns the hour of day with the most check-ins at or
// after since, or -1 when nothing has been checked in
func (r *QueueRepository) PeakHourSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND checked_in_at >= ?", tenantID, since)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var hour *int
	err := query.
		Select("EXTRACT(HOUR FROM checked_in_at)::int AS hour").
		Group("hour").
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&hour).Error
	if err != nil {
		return 0, apperr.Storage(err, "peak hour")
	}
	if hour == nil {
		return -1, nil
	}
	return *hour, nil
}

// elapsedMinutes floors the elapsed time between two instants to whole
// minutes, never negative
func elapsedMinutes(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Minute)
}
