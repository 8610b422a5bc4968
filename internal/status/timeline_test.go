package status

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/utils"
)

func services(statuses ...models.ServiceStatus) []models.Service {
	out := make([]models.Service, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, models.Service{ID: uuid.New(), Status: s})
	}
	return out
}

func TestOverallStatus(t *testing.T) {
	cases := []struct {
		name string
		in   []models.Service
		want string
	}{
		{"empty", nil, "unknown"},
		{"all operational", services(models.ServiceOperational, models.ServiceOperational), "operational"},
		{"major wins", services(models.ServiceOperational, models.ServiceDegraded, models.ServiceMajorOutage), "major_outage"},
		{"partial over degraded", services(models.ServiceDegraded, models.ServicePartialOutage), "partial_outage"},
		{"degraded over maintenance", services(models.ServiceMaintenance, models.ServiceDegraded), "degraded"},
		{"maintenance", services(models.ServiceOperational, models.ServiceMaintenance), "maintenance"},
		{"unknown values ignored", services("weird"), "operational"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OverallStatus(tc.in))
		})
	}
}

var base = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func incidentAt(svc uuid.UUID, at time.Time, updates ...time.Time) models.Incident {
	inc := models.Incident{
		ID:        uuid.New(),
		Title:     "incident",
		Status:    models.IncidentInvestigating,
		ServiceID: svc,
		CreatedAt: at,
	}
	for _, u := range updates {
		inc.Updates = append(inc.Updates, models.IncidentUpdate{
			ID:         uuid.New(),
			IncidentID: inc.ID,
			Message:    "update at " + u.Format(time.RFC3339),
			CreatedAt:  u,
		})
	}
	return inc
}

func TestBuildTimelineCap(t *testing.T) {
	svc := uuid.New()
	var incidents []models.Incident
	for i := 0; i < 35; i++ {
		incidents = append(incidents, incidentAt(svc, base.Add(time.Duration(i)*time.Hour)))
	}
	var maints []models.Maintenance
	for i := 0; i < 15; i++ {
		maints = append(maints, models.Maintenance{
			ID:             uuid.New(),
			ServiceID:      svc,
			Status:         models.MaintenanceScheduled,
			ScheduledStart: base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			ScheduledEnd:   base.Add(time.Duration(i+1) * time.Hour),
		})
	}

	events := BuildTimeline(incidents, maints, ServiceNames{svc: "API"})
	require.Len(t, events, TimelineCap)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.After(events[i-1].Timestamp), "timeline must be newest first")
	}
	assert.Equal(t, base.Add(34*time.Hour), events[0].Timestamp)
	require.NotNil(t, events[0].ServiceName)
	assert.Equal(t, "API", *events[0].ServiceName)
}

func TestBuildTimelineUsesLatestUpdateOnly(t *testing.T) {
	svc := uuid.New()
	inc := incidentAt(svc, base, base.Add(time.Hour), base.Add(3*time.Hour), base.Add(2*time.Hour))
	events := BuildTimeline([]models.Incident{inc}, nil, ServiceNames{})

	require.Len(t, events, 2)
	assert.Equal(t, EventIncidentUpdate, events[0].Type)
	assert.Equal(t, base.Add(3*time.Hour), events[0].Timestamp)
	assert.Equal(t, "Update: incident", events[0].Title)
	require.NotNil(t, events[0].ParentID)
	assert.Equal(t, inc.ID, *events[0].ParentID)
	assert.Nil(t, events[0].ServiceName, "missing service renders as null")
	assert.Nil(t, events[0].Status)

	assert.Equal(t, EventIncident, events[1].Type)
}

func TestBuildTimelineMaintenanceCarriesEnd(t *testing.T) {
	m := models.Maintenance{
		ID:             uuid.New(),
		Title:          "upgrade",
		Status:         models.MaintenanceInProgress,
		ScheduledStart: base,
		ScheduledEnd:   base.Add(time.Hour),
		ServiceID:      uuid.New(),
	}
	events := BuildTimeline(nil, []models.Maintenance{m}, nil)
	require.Len(t, events, 1)
	assert.Equal(t, EventMaintenance, events[0].Type)
	assert.Equal(t, base, events[0].Timestamp)
	require.NotNil(t, events[0].EndTime)
	assert.Equal(t, base.Add(time.Hour), *events[0].EndTime)
	assert.Equal(t, "in_progress", *events[0].Status)
}

func TestBuildFullTimeline(t *testing.T) {
	svc := uuid.New()
	since := base.Add(-FullTimelineWindow)
	old := incidentAt(svc, since.Add(-time.Hour), since.Add(-time.Minute), since.Add(time.Hour))
	fresh := incidentAt(svc, base, base.Add(time.Minute), base.Add(2*time.Minute))
	maints := []models.Maintenance{
		{ID: uuid.New(), ServiceID: svc, ScheduledStart: since.Add(-2 * time.Hour), ScheduledEnd: since.Add(time.Hour)},
		{ID: uuid.New(), ServiceID: svc, ScheduledStart: since.Add(-3 * time.Hour), ScheduledEnd: since.Add(-2 * time.Hour)},
	}

	events := BuildFullTimeline([]models.Incident{old, fresh}, maints, nil, since)
	counts := map[EventType]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	assert.Equal(t, 1, counts[EventIncident], "incident created before the window is left out")
	assert.Equal(t, 3, counts[EventIncidentUpdate], "every update in the window is kept")
	assert.Equal(t, 1, counts[EventMaintenance])
}

func TestPaginate(t *testing.T) {
	events := make([]Event, 45)
	for i := range events {
		events[i] = Event{ID: uuid.New(), Timestamp: base.Add(-time.Duration(i) * time.Minute)}
	}

	page, err := Paginate(events, utils.Page{Skip: 40, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.Equal(t, events[40].ID, page[0].ID)

	page, err = Paginate(events, utils.Page{Skip: 100, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, page)

	for _, bad := range []utils.Page{{Skip: -1, Limit: 20}, {Limit: 0}, {Limit: 101}} {
		_, err := Paginate(events, bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", bad)
	}
}

func TestSortIsDeterministicForTies(t *testing.T) {
	a := Event{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Timestamp: base}
	b := Event{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Timestamp: base}
	events := []Event{a, b}
	sortEvents(events)
	assert.Equal(t, b.ID, events[0].ID)
}
