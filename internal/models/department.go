package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepartmentStatus represents the operational state of a department
type DepartmentStatus string

const (
	DepartmentActive DepartmentStatus = "active"
	DepartmentBusy   DepartmentStatus = "busy"
	DepartmentClosed DepartmentStatus = "closed"
)

// Department represents a named service line within a branch
type Department struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_department_name" json:"tenant_id"`
	BranchID *uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_department_name" json:"branch_id,omitempty"`
	Name     string           `gorm:"type:varchar(100);not null;uniqueIndex:idx_department_name" json:"name"`
	Code     string           `gorm:"type:varchar(10);not null" json:"code"`
	Status   DepartmentStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	AverageServiceTimeMinutes int `gorm:"not null" json:"average_service_time_minutes"`

	// TotalWaiting is computed per read from live queue entries.
	TotalWaiting int `gorm:"-" json:"total_waiting"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Department) TableName() string {
	return "departments"
}

// BeforeCreate hook
func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DefaultDepartment is one entry in the fixed per-branch seed list
type DefaultDepartment struct {
	Name                      string
	Code                      string
	AverageServiceTimeMinutes int
}

// DefaultDepartments is the fixed list seeded once per (tenant, branch).
// Seeding never updates existing rows, so operator-edited service times
// survive re-seeding.
var DefaultDepartments = []DefaultDepartment{
	{Name: "General Medicine", Code: "GEN", AverageServiceTimeMinutes: 15},
	{Name: "Cardiology", Code: "CAR", AverageServiceTimeMinutes: 20},
	{Name: "Laboratory", Code: "LAB", AverageServiceTimeMinutes: 10},
	{Name: "Radiology", Code: "RAD", AverageServiceTimeMinutes: 25},
	{Name: "Pharmacy", Code: "PHA", AverageServiceTimeMinutes: 5},
}
