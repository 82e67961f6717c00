package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"github.com/rs/zerolog/log"
)

// DepartmentService is the department registry: it lists service lines
// with live waiting counts and guarantees the default set exists per
// (tenant, branch).
type DepartmentService struct {
	deptRepo  DepartmentStore
	auditRepo AuditStore
}

// NewDepartmentService creates a new department service
func NewDepartmentService(deptRepo DepartmentStore, auditRepo AuditStore) *DepartmentService {
	return &DepartmentService{
		deptRepo:  deptRepo,
		auditRepo: auditRepo,
	}
}

// List returns the departments in scope with live waiting counts
func (s *DepartmentService) List(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]models.Department, error) {
	return s.deptRepo.List(ctx, tenantID, branchID)
}

// EnsureDefaults seeds the default departments for a scope. Safe to call
// repeatedly; returns how many rows were created.
func (s *DepartmentService) EnsureDefaults(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	created, err := s.deptRepo.EnsureDefaults(ctx, tenantID, branchID)
	if err != nil {
		return created, err
	}

	if created > 0 {
		audit := &models.AuditLog{
			TenantID:     tenantID,
			BranchID:     branchID,
			Action:       models.AuditActionDepartmentSeed,
			ResourceType: "department",
			Status:       "success",
		}
		if err := s.auditRepo.Create(ctx, audit); err != nil {
			log.Warn().Err(err).Msg("Failed to write audit log")
		}
	}
	return created, nil
}
