// Package notify delivers domain events to subscribers and mail recipients.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/realtime"
)

// EventType names a domain event.
type EventType string

const (
	EventPasswordReset EventType = "password_reset"

	EventServiceCreated EventType = "service_created"
	EventServiceUpdated EventType = "service_updated"
	EventServiceDeleted EventType = "service_deleted"

	EventIncidentCreated      EventType = "incident_created"
	EventIncidentUpdated      EventType = "incident_updated"
	EventIncidentResolved     EventType = "incident_resolved"
	EventIncidentUpdatePosted EventType = "incident_update_posted"
	EventIncidentDeleted      EventType = "incident_deleted"

	EventMaintenanceCreated EventType = "maintenance_created"
	EventMaintenanceUpdated EventType = "maintenance_updated"
	EventMaintenanceDeleted EventType = "maintenance_deleted"
)

// Topic returns the realtime topic the event is broadcast on, or "" for
// events that are never broadcast.
func (t EventType) Topic() string {
	switch t {
	case EventServiceCreated, EventServiceUpdated, EventServiceDeleted,
		EventMaintenanceCreated, EventMaintenanceUpdated, EventMaintenanceDeleted:
		return realtime.TopicStatus
	case EventIncidentCreated, EventIncidentUpdated, EventIncidentResolved,
		EventIncidentUpdatePosted, EventIncidentDeleted:
		return realtime.TopicIncidents
	}
	return ""
}

// Event is a notification about a change. Email events carry Recipient,
// Subject and Body; entity events carry Payload.
type Event struct {
	Type           EventType
	OrganizationID *uuid.UUID

	Recipient string
	Subject   string
	Body      string

	Payload interface{}
}

// IncidentChange is the payload of incident events.
type IncidentChange struct {
	Incident *models.Incident       `json:"incident"`
	Update   *models.IncidentUpdate `json:"update,omitempty"`
}

// Sink receives events. Send never fails the caller; implementations log
// their own delivery errors.
type Sink interface {
	Send(ctx context.Context, ev Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Send(context.Context, Event) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

// Send implements Sink.
func (m Multi) Send(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Send(ctx, ev)
	}
}
