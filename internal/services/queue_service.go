package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/otcheredev/patient-queue-service/internal/cache"
	"github.com/otcheredev/patient-queue-service/internal/metrics"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"github.com/otcheredev/patient-queue-service/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// QueueService is the scheduler: the only component that assigns queue
// positions and enforces status-transition rules.
type QueueService struct {
	queueRepo QueueStore
	deptRepo  DepartmentStore
	auditRepo AuditStore
	cache     cache.Cache
	cacheTTL  time.Duration
	clock     Clock
}

// NewQueueService creates a new queue service
func NewQueueService(
	queueRepo QueueStore,
	deptRepo DepartmentStore,
	auditRepo AuditStore,
	statsCache cache.Cache,
	cacheTTL time.Duration,
	clock Clock,
) *QueueService {
	return &QueueService{
		queueRepo: queueRepo,
		deptRepo:  deptRepo,
		auditRepo: auditRepo,
		cache:     statsCache,
		cacheTTL:  cacheTTL,
		clock:     clock,
	}
}

// CheckIn registers a patient in a department's line. Position assignment
// and wait estimation run in one transaction holding a row lock on the
// department, so concurrent check-ins cannot claim the same position.
// Estimated wait is (position-1) * the department's average service time.
func (s *QueueService) CheckIn(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, req *models.CheckInRequest) (*models.CheckInResult, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if req.Department == "" {
		return nil, apperr.Validation("department is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.ValidPriority(priority) {
		return nil, apperr.Validation("unknown priority: " + string(priority))
	}

	now := s.clock.Now().UTC()
	entry := &models.QueueEntry{
		TenantID:        tenantID,
		BranchID:        branchID,
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		Department:      req.Department,
		DoctorName:      req.DoctorName,
		AppointmentType: req.AppointmentType,
		Priority:        priority,
		Status:          models.StatusWaiting,
		Notes:           req.Notes,
		CheckedInAt:     now,
	}

	err := s.queueRepo.Transaction(ctx, func(tx *gorm.DB) error {
		dept, err := s.deptRepo.GetByNameForUpdate(tx, tenantID, branchID, req.Department)
		if err != nil {
			return err
		}
		if dept.Status == models.DepartmentClosed {
			return apperr.Conflict("department " + dept.Name + " is closed")
		}

		maxPos, err := s.queueRepo.MaxWaitingPosition(tx, tenantID, branchID, req.Department)
		if err != nil {
			return err
		}

		entry.Position = maxPos + 1
		entry.EstimatedWaitMinutes = (entry.Position - 1) * dept.AverageServiceTimeMinutes
		return s.queueRepo.Create(tx, entry)
	})
	if err != nil {
		// No entry was created, so there is no resource id to record
		s.audit(ctx, tenantID, branchID, models.AuditActionCheckIn, "", req.Department, err)
		return nil, err
	}

	s.audit(ctx, tenantID, branchID, models.AuditActionCheckIn, entry.ID.String(), req.Department, nil)
	s.invalidateStats(ctx, tenantID)
	metrics.RecordCheckIn(req.Department, string(priority))

	return &models.CheckInResult{
		Entry:                entry,
		Position:             entry.Position,
		EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
	}, nil
}

// CallNext calls the lowest-position waiting entry in a department. The
// entry is selected and locked server-side; callers no longer pick it.
func (s *QueueService) CallNext(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, department string) (*models.QueueEntry, error) {
	if department == "" {
		return nil, apperr.Validation("department is required")
	}

	now := s.clock.Now().UTC()
	var entry *models.QueueEntry

	err := s.queueRepo.Transaction(ctx, func(tx *gorm.DB) error {
		next, err := s.queueRepo.LowestWaitingForUpdate(tx, tenantID, branchID, department)
		if err != nil {
			return err
		}
		next.Status = models.StatusCalled
		next.CalledAt = &now
		if err := s.queueRepo.Update(tx, next); err != nil {
			return err
		}
		entry = next
		return nil
	})
	if err != nil {
		s.audit(ctx, tenantID, branchID, models.AuditActionCallNext, "", department, err)
		return nil, err
	}

	s.audit(ctx, tenantID, branchID, models.AuditActionCallNext, entry.ID.String(), department, nil)
	s.invalidateStats(ctx, tenantID)
	metrics.RecordStatusChange(string(models.StatusWaiting), string(models.StatusCalled))
	return entry, nil
}

// UpdateStatus moves an entry to a new status, stamping the matching
// stage timestamp. Illegal transitions (anything out of a terminal
// state, or backwards) are rejected.
func (s *QueueService) UpdateStatus(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID, req *models.StatusUpdateRequest) (*models.QueueEntry, error) {
	if !models.ValidStatus(req.Status) {
		return nil, apperr.Validation("unknown status: " + string(req.Status))
	}

	now := s.clock.Now().UTC()
	var entry *models.QueueEntry
	var fromStatus models.QueueStatus

	err := s.queueRepo.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := s.queueRepo.GetByIDForUpdate(tx, tenantID, entryID)
		if err != nil {
			return err
		}
		fromStatus = current.Status

		if !models.CanTransition(current.Status, req.Status) {
			return apperr.Conflict("cannot transition from " + string(current.Status) + " to " + string(req.Status))
		}

		current.Status = req.Status
		switch req.Status {
		case models.StatusCalled:
			if current.CalledAt == nil {
				current.CalledAt = &now
			}
		case models.StatusInProgress:
			if current.StartedAt == nil {
				current.StartedAt = &now
			}
		case models.StatusCompleted:
			current.CompletedAt = &now
		case models.StatusNoShow:
			current.NoShowAt = &now
		}
		if req.Notes != "" {
			current.Notes = req.Notes
		}

		if err := s.queueRepo.Update(tx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		s.audit(ctx, tenantID, nil, models.AuditActionStatusChange, entryID.String(), "", err)
		return nil, err
	}

	s.audit(ctx, tenantID, entry.BranchID, models.AuditActionStatusChange, entry.ID.String(), entry.Department, nil)
	s.invalidateStats(ctx, tenantID)
	metrics.RecordStatusChange(string(fromStatus), string(req.Status))
	if req.Status == models.StatusCompleted {
		metrics.RecordWaitTime(entry.Department, int(now.Sub(entry.CheckedInAt)/time.Minute))
	}
	return entry, nil
}

// GetEntry returns a single queue entry within the tenant's scope, with
// its live actual wait
func (s *QueueService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*models.QueueEntry, error) {
	return s.queueRepo.GetByID(ctx, tenantID, entryID, s.clock.Now().UTC())
}

// ListEntries returns the live queue, optionally narrowed by department
// and status, ordered by position
func (s *QueueService) ListEntries(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, department string, status models.QueueStatus) ([]models.QueueEntry, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, apperr.Validation("unknown status: " + string(status))
	}
	return s.queueRepo.ListEntries(ctx, repository.EntryFilter{
		TenantID:   tenantID,
		BranchID:   branchID,
		Department: department,
		Status:     status,
	}, s.clock.Now().UTC())
}

// GetStats assembles the per-day aggregate snapshot. The aggregates run
// concurrently against independent connections; the combined numbers may
// straddle concurrent writes by a row or two, which is acceptable for a
// dashboard figure. Snapshots are cached briefly per tenant/branch.
func (s *QueueService) GetStats(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (*models.QueueStats, error) {
	key := statsKey(tenantID, branchID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var stats models.QueueStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			metrics.RecordStatsCache("hit")
			return &stats, nil
		}
	}
	metrics.RecordStatsCache("miss")

	now := s.clock.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		waiting, served, noShows int
		avgWait, currentEst      int
		peakHour                 int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		waiting, err = s.queueRepo.CountWaiting(gctx, tenantID, branchID)
		return err
	})
	g.Go(func() (err error) {
		served, err = s.queueRepo.CountByStatusSince(gctx, tenantID, branchID, models.StatusCompleted, startOfDay)
		return err
	})
	g.Go(func() (err error) {
		noShows, err = s.queueRepo.CountByStatusSince(gctx, tenantID, branchID, models.StatusNoShow, startOfDay)
		return err
	})
	g.Go(func() (err error) {
		avgWait, err = s.queueRepo.AverageWaitSince(gctx, tenantID, branchID, startOfDay)
		return err
	})
	g.Go(func() (err error) {
		currentEst, err = s.queueRepo.AverageEstimatedWait(gctx, tenantID, branchID)
		return err
	})
	g.Go(func() (err error) {
		peakHour, err = s.queueRepo.PeakHourSince(gctx, tenantID, branchID, startOfDay)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.QueueStats{
		TotalWaiting:                waiting,
		TotalServedToday:            served,
		AverageWaitTimeMinutes:      avgWait,
		CurrentEstimatedWaitMinutes: currentEst,
		PeakHour:                    peakHour,
		Efficiency:                  ratioPercent(served, served+noShows, 100),
		NoShowRate:                  ratioPercent(noShows, served+noShows, 0),
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache stats snapshot")
		}
	}
	return stats, nil
}

// ratioPercent returns part/whole as a whole percentage rounded to
// nearest, or zeroDefault when whole is zero
func ratioPercent(part, whole, zeroDefault int) int {
	if whole == 0 {
		return zeroDefault
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func statsKey(tenantID uuid.UUID, branchID *uuid.UUID) string {
	branch := ""
	if branchID != nil {
		branch = branchID.String()
	}
	return cache.StatsKey(tenantID.String(), branch)
}

// invalidateStats drops cached snapshots for a tenant after any mutation
func (s *QueueService) invalidateStats(ctx context.Context, tenantID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, cache.TenantPrefix(tenantID.String())); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to invalidate stats cache")
	}
}

// audit records a queue mutation; audit failures are logged, never
// surfaced to the caller
func (s *QueueService) audit(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, action, resourceID, department string, opErr error) {
	entry := &models.AuditLog{
		TenantID:     tenantID,
		BranchID:     branchID,
		Action:       action,
		ResourceType: "queue_entry",
		ResourceID:   resourceID,
		Department:   department,
		Status:       "success",
	}
	if opErr != nil {
		entry.Status = "failure"
		entry.ErrorMessage = opErr.Error()
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}
