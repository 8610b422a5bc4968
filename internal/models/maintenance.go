package models

import (
	"time"

	"github.com/google/uuid"
)

// MaintenanceStatus is the state of a maintenance window.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Valid reports whether s is a known maintenance status.
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

// Maintenance is a planned maintenance window for a service.
type Maintenance struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	Description    *string           `json:"description,omitempty"`
	Status         MaintenanceStatus `json:"status"`
	ScheduledStart time.Time         `json:"scheduled_start"`
	ScheduledEnd   time.Time         `json:"scheduled_end"`
	OrganizationID *uuid.UUID        `json:"organization_id,omitempty"`
	IsActive       bool              `json:"is_active"`
	ServiceID      uuid.UUID         `json:"service_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
