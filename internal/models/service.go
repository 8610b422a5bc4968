package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceStatus is the health of a monitored service.
type ServiceStatus string

const (
	ServiceOperational   ServiceStatus = "operational"
	ServiceDegraded      ServiceStatus = "degraded"
	ServicePartialOutage ServiceStatus = "partial_outage"
	ServiceMajorOutage   ServiceStatus = "major_outage"
	ServiceMaintenance   ServiceStatus = "maintenance"
)

// Valid reports whether s is a known service status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceOperational, ServiceDegraded, ServicePartialOutage, ServiceMajorOutage, ServiceMaintenance:
		return true
	}
	return false
}

// Service is a component shown on an organization's status page.
type Service struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description,omitempty"`
	Status         ServiceStatus `json:"status"`
	OrganizationID *uuid.UUID    `json:"organization_id,omitempty"`
	IsActive       bool          `json:"is_active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
