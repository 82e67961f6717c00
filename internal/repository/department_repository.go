package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/otcheredev/patient-queue-service/internal/database"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepartmentRepository handles department database operations
type DepartmentRepository struct{}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{}
}

// List returns the departments in a scope with live waiting counts
func (r *DepartmentRepository) List(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]models.Department, error) {
	query := database.DB.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var departments []models.Department
	if err := query.Order("name ASC").Find(&departments).Error; err != nil {
		return nil, apperr.Storage(err, "list departments")
	}

	counts, err := r.waitingCounts(ctx, tenantID, branchID)
	if err != nil {
		return nil, err
	}
	for i := range departments {
		departments[i].TotalWaiting = counts[departments[i].Name]
	}
	return departments, nil
}

// waitingCounts groups waiting queue entries by department name
func (r *DepartmentRepository) waitingCounts(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (map[string]int, error) {
	query := database.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.StatusWaiting)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var rows []struct {
		Department string
		Total      int
	}
	err := query.
		Select("department, COUNT(*) AS total").
		Group("department").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "count waiting per department")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Department] = row.Total
	}
	return counts, nil
}

// GetByName retrieves a department by name within a scope
func (r *DepartmentRepository) GetByName(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, name string) (*models.Department, error) {
	return r.getByName(database.DB.WithContext(ctx), tenantID, branchID, name, false)
}

// GetByNameForUpdate retrieves a department with a row lock, inside tx.
// The lock serializes concurrent check-ins to the same department so
// position assignment stays gapless.
func (r *DepartmentRepository) GetByNameForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, name string) (*models.Department, error) {
	return r.getByName(tx, tenantID, branchID, name, true)
}

func (r *DepartmentRepository) getByName(db *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, name string, forUpdate bool) (*models.Department, error) {
	query := db.Where("tenant_id = ? AND name = ?", tenantID, name)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var dept models.Department
	err := query.First(&dept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("department", name)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get department")
	}
	return &dept, nil
}

// Create inserts a department
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if err := database.DB.WithContext(ctx).Create(dept).Error; err != nil {
		return apperr.Storage(err, "create department")
	}
	return nil
}

// EnsureDefaults seeds the fixed default departments for a scope.
// Idempotent: existing rows are never touched, so re-seeding does not
// overwrite operator-edited service times.
func (r *DepartmentRepository) EnsureDefaults(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	created := 0
	for _, def := range models.DefaultDepartments {
		_, err := r.GetByName(ctx, tenantID, branchID, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return created, err
		}

		dept := &models.Department{
			TenantID:                  tenantID,
			BranchID:                  branchID,
			Name:                      def.Name,
			Code:                      def.Code,
			Status:                    models.DepartmentActive,
			AverageServiceTimeMinutes: def.AverageServiceTimeMinutes,
		}
		if err := r.Create(ctx, dept); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
