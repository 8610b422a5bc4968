package status

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/utils"
)

const (
	// TimelineCap bounds the overview timeline.
	TimelineCap = 30
	// FullTimelineWindow is the lookback of the paginated timeline.
	FullTimelineWindow = 30 * 24 * time.Hour
	// TimelineMaxLimit bounds a page of the paginated timeline.
	TimelineMaxLimit = 100
	// TimelineDefaultLimit is the page size when none is requested.
	TimelineDefaultLimit = 20
)

// EventType names a timeline entry kind.
type EventType string

const (
	EventIncident       EventType = "incident"
	EventIncidentUpdate EventType = "incident_update"
	EventMaintenance    EventType = "maintenance"
)

// Event is one entry of a status page timeline.
type Event struct {
	Type        EventType  `json:"type"`
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Timestamp   time.Time  `json:"timestamp"`
	ServiceID   uuid.UUID  `json:"service_id"`
	ServiceName *string    `json:"service_name"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// ServiceNames maps service IDs to display names. Missing entries render as null.
type ServiceNames map[uuid.UUID]string

func (n ServiceNames) lookup(id uuid.UUID) *string {
	name, ok := n[id]
	if !ok {
		return nil
	}
	return &name
}

func incidentEvent(i *models.Incident, names ServiceNames) Event {
	st := string(i.Status)
	return Event{
		Type:        EventIncident,
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      &st,
		Timestamp:   i.CreatedAt,
		ServiceID:   i.ServiceID,
		ServiceName: names.lookup(i.ServiceID),
	}
}

func updateEvent(i *models.Incident, u *models.IncidentUpdate, names ServiceNames) Event {
	msg := u.Message
	var st *string
	if u.Status != nil {
		s := string(*u.Status)
		st = &s
	}
	parent := i.ID
	return Event{
		Type:        EventIncidentUpdate,
		ID:          u.ID,
		Title:       "Update: " + i.Title,
		Description: &msg,
		Status:      st,
		Timestamp:   u.CreatedAt,
		ServiceID:   i.ServiceID,
		ServiceName: names.lookup(i.ServiceID),
		ParentID:    &parent,
	}
}

func maintenanceEvent(m *models.Maintenance, names ServiceNames) Event {
	st := string(m.Status)
	end := m.ScheduledEnd
	return Event{
		Type:        EventMaintenance,
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Status:      &st,
		Timestamp:   m.ScheduledStart,
		ServiceID:   m.ServiceID,
		ServiceName: names.lookup(m.ServiceID),
		EndTime:     &end,
	}
}

// latestUpdate returns the most recent update of i, or nil.
func latestUpdate(i *models.Incident) *models.IncidentUpdate {
	var latest *models.IncidentUpdate
	for k := range i.Updates {
		u := &i.Updates[k]
		if latest == nil || u.CreatedAt.After(latest.CreatedAt) {
			latest = u
		}
	}
	return latest
}

// sortEvents orders events newest first. Equal timestamps fall back to the
// ID so repeated calls page the same way.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(a, b int) bool {
		if !events[a].Timestamp.Equal(events[b].Timestamp) {
			return events[a].Timestamp.After(events[b].Timestamp)
		}
		return events[a].ID.String() < events[b].ID.String()
	})
}

// BuildTimeline returns the overview timeline: one entry per incident, one
// for the latest update of each incident, and one per maintenance, newest
// first and capped at TimelineCap.
func BuildTimeline(incidents []models.Incident, maintenances []models.Maintenance, names ServiceNames) []Event {
	events := make([]Event, 0, 2*len(incidents)+len(maintenances))
	for k := range incidents {
		i := &incidents[k]
		events = append(events, incidentEvent(i, names))
		if u := latestUpdate(i); u != nil {
			events = append(events, updateEvent(i, u, names))
		}
	}
	for k := range maintenances {
		events = append(events, maintenanceEvent(&maintenances[k], names))
	}
	sortEvents(events)
	if len(events) > TimelineCap {
		events = events[:TimelineCap]
	}
	return events
}

// BuildFullTimeline returns every incident, incident update and maintenance
// that falls inside the window starting at since, newest first. Incidents
// created before since still contribute their recent updates.
func BuildFullTimeline(incidents []models.Incident, maintenances []models.Maintenance, names ServiceNames, since time.Time) []Event {
	events := []Event{}
	for k := range incidents {
		i := &incidents[k]
		if !i.CreatedAt.Before(since) {
			events = append(events, incidentEvent(i, names))
		}
		for u := range i.Updates {
			if !i.Updates[u].CreatedAt.Before(since) {
				events = append(events, updateEvent(i, &i.Updates[u], names))
			}
		}
	}
	for k := range maintenances {
		m := &maintenances[k]
		if !m.ScheduledStart.Before(since) || !m.ScheduledEnd.Before(since) {
			events = append(events, maintenanceEvent(m, names))
		}
	}
	sortEvents(events)
	return events
}

// Paginate slices an already sorted timeline.
func Paginate(events []Event, page utils.Page) ([]Event, error) {
	if err := page.Validate(TimelineMaxLimit); err != nil {
		return nil, err
	}
	if page.Skip >= len(events) {
		return []Event{}, nil
	}
	end := page.Skip + page.Limit
	if end > len(events) {
		end = len(events)
	}
	return events[page.Skip:end], nil
}
