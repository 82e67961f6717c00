package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueStatus represents the lifecycle state of a queue entry
type QueueStatus string

const (
	StatusWaiting    QueueStatus = "waiting"
	StatusCalled     QueueStatus = "called"
	StatusInProgress QueueStatus = "in-progress"
	StatusCompleted  QueueStatus = "completed"
	StatusNoShow     QueueStatus = "no-show"
)

// QueuePriority represents the triage priority of a queue entry
type QueuePriority string

const (
	PriorityUrgent QueuePriority = "urgent"
	PriorityHigh   QueuePriority = "high"
	PriorityNormal QueuePriority = "normal"
	PriorityLow    QueuePriority = "low"
)

// allowedTransitions maps each status to the statuses it may move to.
// completed and no-show are terminal.
var allowedTransitions = map[QueueStatus][]QueueStatus{
	StatusWaiting:    {StatusCalled, StatusInProgress, StatusCompleted, StatusNoShow},
	StatusCalled:     {StatusInProgress, StatusCompleted, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusNoShow},
	StatusCompleted:  {},
	StatusNoShow:     {},
}

// ValidStatus reports whether s is a known queue status
func ValidStatus(s QueueStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ValidPriority reports whether p is a known queue priority
func ValidPriority(p QueuePriority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// CanTransition reports whether a queue entry may move from one status to another
func CanTransition(from, to QueueStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions
func IsTerminal(s QueueStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// QueueEntry represents one patient's position in a department's waiting line
type QueueEntry struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        uuid.UUID     `gorm:"type:uuid;not null;index:idx_queue_scope" json:"tenant_id"`
	BranchID        *uuid.UUID    `gorm:"type:uuid;index:idx_queue_scope" json:"branch_id,omitempty"`
	PatientID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"patient_id"`
	PatientName     string        `gorm:"type:varchar(255)" json:"patient_name"`
	Department      string        `gorm:"type:varchar(100);not null;index:idx_queue_scope" json:"department"`
	DoctorName      string        `gorm:"type:varchar(255)" json:"doctor_name,omitempty"`
	AppointmentType string        `gorm:"type:varchar(100)" json:"appointment_type,omitempty"`
	Priority        QueuePriority `gorm:"type:varchar(20);not null;default:'normal'" json:"priority"`
	Status          QueueStatus   `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	Position        int           `gorm:"not null" json:"position"`

	// EstimatedWaitMinutes is fixed at check-in; ActualWaitMinutes is
	// recomputed from CheckedInAt on every read.
	EstimatedWaitMinutes int `gorm:"not null;default:0" json:"estimated_wait_minutes"`
	ActualWaitMinutes    int `gorm:"-" json:"actual_wait_minutes"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	CheckedInAt time.Time  `gorm:"not null;index" json:"checked_in_at"`
	CalledAt    *time.Time `json:"called_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NoShowAt    *time.Time `json:"no_show_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (QueueEntry) TableName() string {
	return "queue_entries"
}

// BeforeCreate hook
func (e *QueueEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CheckInRequest represents a request to check a patient into a queue
type CheckInRequest struct {
	PatientID       uuid.UUID     `json:"patient_id" binding:"required"`
	PatientName     string        `json:"patient_name"`
	Department      string        `json:"department" binding:"required"`
	DoctorName      string        `json:"doctor_name,omitempty"`
	AppointmentType string        `json:"appointment_type,omitempty"`
	Priority        QueuePriority `json:"priority,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// CheckInResult is returned to the caller after a successful check-in
type CheckInResult struct {
	Entry                *QueueEntry `json:"entry"`
	Position             int         `json:"position"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
}

// StatusUpdateRequest represents a request to move an entry to a new status
type StatusUpdateRequest struct {
	Status QueueStatus `json:"status" binding:"required"`
	Notes  string      `json:"notes,omitempty"`
}

// CallNextRequest asks the scheduler to call the lowest-position waiting
// entry in a department.
type CallNextRequest struct {
	Department string `json:"department" binding:"required"`
}
