package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the investigation state of an incident.
type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// Valid reports whether s is a known incident status.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

// IncidentType distinguishes unplanned incidents from maintenance notices.
type IncidentType string

const (
	IncidentTypeIncident    IncidentType = "incident"
	IncidentTypeMaintenance IncidentType = "maintenance"
)

// Valid reports whether t is a known incident type.
func (t IncidentType) Valid() bool {
	return t == IncidentTypeIncident || t == IncidentTypeMaintenance
}

// Incident is a reported disruption of a service.
type Incident struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    *string          `json:"description,omitempty"`
	Status         IncidentStatus   `json:"status"`
	Type           IncidentType     `json:"type"`
	ServiceID      uuid.UUID        `json:"service_id"`
	OrganizationID *uuid.UUID       `json:"organization_id,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
	Updates        []IncidentUpdate `json:"updates,omitempty"`
}

// SetStatus applies a status transition. Any-to-any transitions are allowed;
// resolved_at is stamped the first time the incident becomes resolved and is
// never cleared afterwards.
func (i *Incident) SetStatus(s IncidentStatus, now time.Time) {
	i.Status = s
	if s == IncidentResolved && i.ResolvedAt == nil {
		t := now
		i.ResolvedAt = &t
	}
}

// IncidentUpdate is a progress note appended to an incident.
type IncidentUpdate struct {
	ID             uuid.UUID       `json:"id"`
	IncidentID     uuid.UUID       `json:"incident_id"`
	OrganizationID *uuid.UUID      `json:"organization_id,omitempty"`
	Message        string          `json:"message"`
	Status         *IncidentStatus `json:"status,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
