package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/otcheredev/patient-queue-service/internal/cache"
	"github.com/otcheredev/patient-queue-service/internal/models"
	"github.com/otcheredev/patient-queue-service/internal/repository"
	"gorm.io/gorm"
)

// fakeClock returns a settable instant
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory QueueStore + DepartmentStore + AuditStore
type fakeStore struct {
	entries     []*models.QueueEntry
	departments []*models.Department
	audits      []models.AuditLog
}

func (f *fakeStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (f *fakeStore) matches(e *models.QueueEntry, tenantID uuid.UUID, branchID *uuid.UUID) bool {
	if e.TenantID != tenantID {
		return false
	}
	if branchID != nil && (e.BranchID == nil || *e.BranchID != *branchID) {
		return false
	}
	return true
}

func (f *fakeStore) ListEntries(ctx context.Context, filter repository.EntryFilter, now time.Time) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	for _, e := range f.entries {
		if !f.matches(e, filter.TenantID, filter.BranchID) {
			continue
		}
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		copied := *e
		copied.ActualWaitMinutes = int(now.Sub(e.CheckedInAt) / time.Minute)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (*models.QueueEntry, error) {
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.ID == id {
			copied := *e
			copied.ActualWaitMinutes = int(now.Sub(e.CheckedInAt) / time.Minute)
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("queue entry", id.String())
}

func (f *fakeStore) GetByIDForUpdate(tx *gorm.DB, tenantID, id uuid.UUID) (*models.QueueEntry, error) {
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.ID == id {
			return e, nil
		}
	}
	return nil, apperr.NotFound("queue entry", id.String())
}

func (f *fakeStore) LowestWaitingForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (*models.QueueEntry, error) {
	var best *models.QueueEntry
	for _, e := range f.entries {
		if !f.matches(e, tenantID, branchID) || e.Department != department || e.Status != models.StatusWaiting {
			continue
		}
		if best == nil || e.Position < best.Position {
			best = e
		}
	}
	if best == nil {
		return nil, apperr.NotFound("waiting queue entry", department)
	}
	return best, nil
}

func (f *fakeStore) MaxWaitingPosition(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, department string) (int, error) {
	max := 0
	for _, e := range f.entries {
		if f.matches(e, tenantID, branchID) && e.Department == department && e.Status == models.StatusWaiting && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (f *fakeStore) Create(tx *gorm.DB, entry *models.QueueEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) Update(tx *gorm.DB, entry *models.QueueEntry) error {
	return nil
}

func (f *fakeStore) CountWaiting(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	count := 0
	for _, e := range f.entries {
		if f.matches(e, tenantID, branchID) && e.Status == models.StatusWaiting {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountByStatusSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, status models.QueueStatus, since time.Time) (int, error) {
	count := 0
	for _, e := range f.entries {
		if !f.matches(e, tenantID, branchID) || e.Status != status {
			continue
		}
		switch status {
		case models.StatusCompleted:
			if e.CompletedAt != nil && !e.CompletedAt.Before(since) {
				count++
			}
		case models.StatusNoShow:
			if e.NoShowAt != nil && !e.NoShowAt.Before(since) {
				count++
			}
		default:
			if !e.CheckedInAt.Before(since) {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeStore) AverageWaitSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error) {
	total, count := 0.0, 0
	for _, e := range f.entries {
		if f.matches(e, tenantID, branchID) && e.Status == models.StatusCompleted && e.CompletedAt != nil && !e.CompletedAt.Before(since) {
			total += e.CompletedAt.Sub(e.CheckedInAt).Minutes()
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return int(total / float64(count)), nil
}

func (f *fakeStore) AverageEstimatedWait(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	total, count := 0, 0
	for _, e := range f.entries {
		if f.matches(e, tenantID, branchID) && e.Status == models.StatusWaiting {
			total += e.EstimatedWaitMinutes
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return total / count, nil
}

func (f *fakeStore) PeakHourSince(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, since time.Time) (int, error) {
	byHour := map[int]int{}
	for _, e := range f.entries {
		if f.matches(e, tenantID, branchID) && !e.CheckedInAt.Before(since) {
			byHour[e.CheckedInAt.Hour()]++
		}
	}
	peak, best := -1, 0
	for hour, n := range byHour {
		if n > best {
			peak, best = hour, n
		}
	}
	return peak, nil
}

func (f *fakeStore) List(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]models.Department, error) {
	var out []models.Department
	for _, d := range f.departments {
		if d.TenantID != tenantID {
			continue
		}
		if branchID != nil && (d.BranchID == nil || *d.BranchID != *branchID) {
			continue
		}
		copied := *d
		for _, e := range f.entries {
			if f.matches(e, tenantID, branchID) && e.Department == d.Name && e.Status == models.StatusWaiting {
				copied.TotalWaiting++
			}
		}
		out = append(out, copied)
	}
	return out, nil
}

func (f *fakeStore) GetByNameForUpdate(tx *gorm.DB, tenantID uuid.UUID, branchID *uuid.UUID, name string) (*models.Department, error) {
	for _, d := range f.departments {
		if d.TenantID != tenantID || d.Name != name {
			continue
		}
		if branchID != nil && (d.BranchID == nil || *d.BranchID != *branchID) {
			continue
		}
		return d, nil
	}
	return nil, apperr.NotFound("department", name)
}

func (f *fakeStore) EnsureDefaults(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (int, error) {
	created := 0
	for _, def := range models.DefaultDepartments {
		if _, err := f.GetByNameForUpdate(nil, tenantID, branchID, def.Name); err == nil {
			continue
		}
		f.departments = append(f.departments, &models.Department{
			ID:                        uuid.New(),
			TenantID:                  tenantID,
			BranchID:                  branchID,
			Name:                      def.Name,
			Code:                      def.Code,
			Status:                    models.DepartmentActive,
			AverageServiceTimeMinutes: def.AverageServiceTimeMinutes,
		})
		created++
	}
	return created, nil
}

func (f *fakeStore) CreateAudit(ctx context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, *log)
	return nil
}

// auditAdapter exposes fakeStore as an AuditStore
type auditAdapter struct{ store *fakeStore }

func (a auditAdapter) Create(ctx context.Context, log *models.AuditLog) error {
	return a.store.CreateAudit(ctx, log)
}

func (a auditAdapter) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for i := len(a.store.audits) - 1; i >= 0; i-- {
		if a.store.audits[i].TenantID == tenantID {
			out = append(out, a.store.audits[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (a auditAdapter) GetByResourceID(ctx context.Context, tenantID uuid.UUID, resourceID string) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for i := len(a.store.audits) - 1; i >= 0; i-- {
		if a.store.audits[i].TenantID == tenantID && a.store.audits[i].ResourceID == resourceID {
			out = append(out, a.store.audits[i])
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*QueueService, *fakeStore, *fakeClock) {
	t.Helper()
	store := &fakeStore{}
	clock := &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	statsCache := cache.NewMemoryCache()
	t.Cleanup(func() { statsCache.Close() })

	svc := NewQueueService(store, store, auditAdapter{store}, statsCache, 15*time.Second, clock)
	return svc, store, clock
}

func seedDepartment(store *fakeStore, tenantID uuid.UUID, name string, avgMinutes int) {
	store.departments = append(store.departments, &models.Department{
		ID:                        uuid.New(),
		TenantID:                  tenantID,
		Name:                      name,
		Code:                      "LAB",
		Status:                    models.DepartmentActive,
		AverageServiceTimeMinutes: avgMinutes,
	})
}

func TestCheckInEmptyQueue(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	if result.Position != 1 {
		t.Errorf("Expected position 1, got %d", result.Position)
	}
	if result.EstimatedWaitMinutes != 0 {
		t.Errorf("Expected estimated wait 0, got %d", result.EstimatedWaitMinutes)
	}
}

func TestCheckInPositionsAreGapless(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	for i := 1; i <= 5; i++ {
		result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
			PatientID:  uuid.New(),
			Department: "Laboratory",
		})
		if err != nil {
			t.Fatalf("CheckIn %d failed: %v", i, err)
		}
		if result.Position != i {
			t.Errorf("Check-in %d: expected position %d, got %d", i, i, result.Position)
		}
		if want := (i - 1) * 10; result.EstimatedWaitMinutes != want {
			t.Errorf("Check-in %d: expected estimated wait %d, got %d", i, want, result.EstimatedWaitMinutes)
		}
	}
}

func TestCheckInBehindExistingPatients(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	for i := 0; i < 3; i++ {
		if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
			PatientID:  uuid.New(),
			Department: "Laboratory",
		}); err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
	}

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if result.Position != 4 {
		t.Errorf("Expected position 4, got %d", result.Position)
	}
	if result.EstimatedWaitMinutes != 30 {
		t.Errorf("Expected estimated wait 30, got %d", result.EstimatedWaitMinutes)
	}
}

func TestCheckInValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	cases := []struct {
		name string
		req  models.CheckInRequest
	}{
		{"missing patient", models.CheckInRequest{Department: "Laboratory"}},
		{"missing department", models.CheckInRequest{PatientID: uuid.New()}},
		{"bad priority", models.CheckInRequest{PatientID: uuid.New(), Department: "Laboratory", Priority: "whenever"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CheckIn(context.Background(), tenant, nil, &tc.req)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestCheckInUnknownDepartment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CheckIn(context.Background(), uuid.New(), nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Telepathy",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestCallNextPicksLowestPosition(t *testing.T) {
	svc, store, clock := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	first, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	called, err := svc.CallNext(context.Background(), tenant, nil, "Laboratory")
	if err != nil {
		t.Fatalf("CallNext failed: %v", err)
	}
	if called.ID != first.Entry.ID {
		t.Errorf("Expected lowest-position entry %s to be called, got %s", first.Entry.ID, called.ID)
	}
	if called.Status != models.StatusCalled {
		t.Errorf("Expected status called, got %s", called.Status)
	}
	if called.CalledAt == nil || !called.CalledAt.Equal(clock.Now()) {
		t.Errorf("Expected called_at stamped with current time, got %v", called.CalledAt)
	}
}

func TestCallNextEmptyQueue(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	_, err := svc.CallNext(context.Background(), tenant, nil, "Laboratory")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestUpdateStatusStampsCompletedAt(t *testing.T) {
	svc, store, clock := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	checkedInAt := result.Entry.CheckedInAt

	clock.Advance(25 * time.Minute)
	entry, err := svc.UpdateStatus(context.Background(), tenant, result.Entry.ID, &models.StatusUpdateRequest{
		Status: models.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if entry.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", entry.Status)
	}
	if entry.CompletedAt == nil || !entry.CompletedAt.Equal(clock.Now()) {
		t.Errorf("Expected completed_at stamped with current time, got %v", entry.CompletedAt)
	}
	if !entry.CheckedInAt.Equal(checkedInAt) {
		t.Errorf("checked_in_at changed from %v to %v", checkedInAt, entry.CheckedInAt)
	}

	// Stats see the completion
	stats, err := svc.GetStats(context.Background(), tenant, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalServedToday != 1 {
		t.Errorf("Expected total served 1, got %d", stats.TotalServedToday)
	}
	if stats.AverageWaitTimeMinutes != 25 {
		t.Errorf("Expected average wait 25, got %d", stats.AverageWaitTimeMinutes)
	}
}

func TestUpdateStatusRejectsTerminalTransitions(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), tenant, result.Entry.ID, &models.StatusUpdateRequest{
		Status: models.StatusCompleted,
	}); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), tenant, result.Entry.ID, &models.StatusUpdateRequest{
		Status: models.StatusWaiting,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected conflict error reactivating a completed entry, got %v", err)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), &models.StatusUpdateRequest{
		Status: "teleported",
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestListEntriesTenantIsolation(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	seedDepartment(store, tenantA, "Laboratory", 10)
	seedDepartment(store, tenantB, "Laboratory", 10)

	resA, err := svc.CheckIn(context.Background(), tenantA, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if _, err := svc.CheckIn(context.Background(), tenantB, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	entries, err := svc.ListEntries(context.Background(), tenantA, nil, "", "")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry for tenant A, got %d", len(entries))
	}
	if entries[0].ID != resA.Entry.ID {
		t.Errorf("Tenant A listing returned foreign entry %s", entries[0].ID)
	}
}

func TestListEntriesActualWaitFloorsMinutes(t *testing.T) {
	svc, store, clock := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	clock.Advance(90 * time.Second)
	entries, err := svc.ListEntries(context.Background(), tenant, nil, "Laboratory", models.StatusWaiting)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].ActualWaitMinutes != 1 {
		t.Errorf("Expected actual wait 1 (floored from 90s), got %d", entries[0].ActualWaitMinutes)
	}
}

func TestGetStatsFreshTenant(t *testing.T) {
	svc, _, _ := newTestService(t)

	stats, err := svc.GetStats(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.TotalWaiting != 0 || stats.TotalServedToday != 0 || stats.AverageWaitTimeMinutes != 0 {
		t.Errorf("Expected zeroed counters, got %+v", stats)
	}
	if stats.Efficiency != 100 {
		t.Errorf("Expected efficiency default 100, got %d", stats.Efficiency)
	}
	if stats.NoShowRate != 0 {
		t.Errorf("Expected no-show rate default 0, got %d", stats.NoShowRate)
	}
	if stats.PeakHour != -1 {
		t.Errorf("Expected peak hour -1, got %d", stats.PeakHour)
	}
}

func TestGetStatsBounds(t *testing.T) {
	svc, store, clock := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	// 2 completed, 1 no-show
	for i := 0; i < 3; i++ {
		result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
			PatientID:  uuid.New(),
			Department: "Laboratory",
		})
		if err != nil {
			t.Fatalf("CheckIn failed: %v", err)
		}
		clock.Advance(5 * time.Minute)
		status := models.StatusCompleted
		if i == 2 {
			status = models.StatusNoShow
		}
		if _, err := svc.UpdateStatus(context.Background(), tenant, result.Entry.ID, &models.StatusUpdateRequest{Status: status}); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
	}

	stats, err := svc.GetStats(context.Background(), tenant, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.Efficiency < 0 || stats.Efficiency > 100 {
		t.Errorf("Efficiency out of bounds: %d", stats.Efficiency)
	}
	if stats.NoShowRate < 0 || stats.NoShowRate > 100 {
		t.Errorf("No-show rate out of bounds: %d", stats.NoShowRate)
	}
	if stats.Efficiency != 67 {
		t.Errorf("Expected efficiency 67 (2/3 rounded), got %d", stats.Efficiency)
	}
	if stats.NoShowRate != 33 {
		t.Errorf("Expected no-show rate 33 (1/3 rounded), got %d", stats.NoShowRate)
	}
}

func TestGetStatsCachesSnapshot(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	first, err := svc.GetStats(context.Background(), tenant, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if first.TotalWaiting != 1 {
		t.Fatalf("Expected 1 waiting, got %d", first.TotalWaiting)
	}

	// Mutate behind the cache's back; cached snapshot is still served
	store.entries[0].Status = models.StatusCompleted
	second, err := svc.GetStats(context.Background(), tenant, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if second.TotalWaiting != 1 {
		t.Errorf("Expected cached snapshot with 1 waiting, got %d", second.TotalWaiting)
	}

	// A mutation through the service invalidates the snapshot
	if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	third, err := svc.GetStats(context.Background(), tenant, nil)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if third.TotalWaiting != 1 {
		t.Errorf("Expected fresh snapshot with 1 waiting, got %d", third.TotalWaiting)
	}
}

func TestGetEntry(t *testing.T) {
	svc, store, clock := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	clock.Advance(7 * time.Minute)
	entry, err := svc.GetEntry(context.Background(), tenant, result.Entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if entry.ID != result.Entry.ID {
		t.Errorf("Expected entry %s, got %s", result.Entry.ID, entry.ID)
	}
	if entry.ActualWaitMinutes != 7 {
		t.Errorf("Expected actual wait 7, got %d", entry.ActualWaitMinutes)
	}
}

func TestGetEntryTenantIsolation(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	result, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	_, err = svc.GetEntry(context.Background(), uuid.New(), result.Entry.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected not found for foreign tenant, got %v", err)
	}
}

func TestCheckInWritesAudit(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	if _, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Laboratory",
	}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	if len(store.audits) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(store.audits))
	}
	if store.audits[0].Action != models.AuditActionCheckIn {
		t.Errorf("Expected action %s, got %s", models.AuditActionCheckIn, store.audits[0].Action)
	}
	if store.audits[0].Status != "success" {
		t.Errorf("Expected success audit, got %s", store.audits[0].Status)
	}
}

func TestCheckInFailureAuditHasNoResourceID(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()

	_, err := svc.CheckIn(context.Background(), tenant, nil, &models.CheckInRequest{
		PatientID:  uuid.New(),
		Department: "Telepathy",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Expected not found error, got %v", err)
	}

	if len(store.audits) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(store.audits))
	}
	if store.audits[0].Status != "failure" {
		t.Errorf("Expected failure audit, got %s", store.audits[0].Status)
	}
	if store.audits[0].ResourceID != "" {
		t.Errorf("Expected empty resource_id when no entry was created, got %q", store.audits[0].ResourceID)
	}
}

func TestCallNextEmptyQueueWritesFailureAudit(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenant := uuid.New()
	seedDepartment(store, tenant, "Laboratory", 10)

	_, err := svc.CallNext(context.Background(), tenant, nil, "Laboratory")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Expected not found error, got %v", err)
	}

	if len(store.audits) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(store.audits))
	}
	if store.audits[0].Action != models.AuditActionCallNext {
		t.Errorf("Expected action %s, got %s", models.AuditActionCallNext, store.audits[0].Action)
	}
	if store.audits[0].Status != "failure" {
		t.Errorf("Expected failure audit, got %s", store.audits[0].Status)
	}
	if store.audits[0].ResourceID != "" {
		t.Errorf("Expected empty resource_id when nothing was called, got %q", store.audits[0].ResourceID)
	}
}
