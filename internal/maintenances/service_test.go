package maintenances

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

type memStore struct {
	mu       sync.Mutex
	services map[uuid.UUID]*uuid.UUID
	items    map[uuid.UUID]*models.Maintenance
}

func newMemStore() *memStore {
	return &memStore{services: make(map[uuid.UUID]*uuid.UUID), items: make(map[uuid.UUID]*models.Maintenance)}
}

func (m *memStore) addService(org uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.services[id] = &org
	return id
}

func (m *memStore) filter(keep func(*models.Maintenance) bool) []models.Maintenance {
	out := []models.Maintenance{}
	for _, it := range m.items {
		if keep(it) {
			out = append(out, *it)
		}
	}
	return out
}

func (m *memStore) List(_ context.Context, scope policy.Scope, page utils.Page) ([]models.Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(it *models.Maintenance) bool { return scope.Matches(it.OrganizationID) })
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.After(out[j].ScheduledStart) })
	if page.Skip >= len(out) {
		return []models.Maintenance{}, nil
	}
	out = out[page.Skip:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID, scope policy.Scope) (*models.Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || !scope.Matches(it.OrganizationID) {
		return nil, apperr.NotFound("maintenance")
	}
	cp := *it
	return &cp, nil
}

func (m *memStore) ServiceOrg(_ context.Context, serviceID uuid.UUID, scope policy.Scope) (*uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.services[serviceID]
	if !ok || !scope.Matches(org) {
		return nil, apperr.NotFound("service")
	}
	return org, nil
}

func (m *memStore) Create(_ context.Context, it *models.Maintenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = uuid.New()
	it.CreatedAt = time.Now()
	it.UpdatedAt = it.CreatedAt
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, it *models.Maintenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		return apperr.NotFound("maintenance")
	}
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("maintenance")
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) Visible(_ context.Context, scope policy.Scope, since time.Time) ([]models.Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(it *models.Maintenance) bool {
		return scope.Matches(it.OrganizationID) && (it.IsActive || !it.ScheduledEnd.Before(since))
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.After(out[j].ScheduledStart) })
	return out, nil
}

func (m *memStore) Upcoming(_ context.Context, scope policy.Scope, now time.Time) ([]models.Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(it *models.Maintenance) bool {
		return scope.Matches(it.OrganizationID) && it.IsActive && !it.ScheduledEnd.Before(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out, nil
}

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, nil, nil)
	svc.now = func() time.Time { return now }
	return svc, store
}

func manager(org uuid.UUID) policy.Principal {
	return policy.Principal{UserID: uuid.New(), OrganizationID: &org, Role: models.RoleManager}
}

func TestCreateDefaultsAndWindow(t *testing.T) {
	svc, store := newTestService()
	org := uuid.New()
	svcID := store.addService(org)
	ctx := context.Background()

	m, err := svc.Create(ctx, manager(org), CreateInput{
		Title:          "DB upgrade",
		ScheduledStart: now.Add(time.Hour),
		ScheduledEnd:   now.Add(2 * time.Hour),
		ServiceID:      svcID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceScheduled, m.Status)
	assert.True(t, m.IsActive)
	assert.Equal(t, org, *m.OrganizationID)

	_, err = svc.Create(ctx, manager(org), CreateInput{
		Title:          "backwards",
		ScheduledStart: now.Add(2 * time.Hour),
		ScheduledEnd:   now.Add(time.Hour),
		ServiceID:      svcID,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	bad := models.MaintenanceStatus("done")
	_, err = svc.Create(ctx, manager(org), CreateInput{
		Title:          "bad status",
		Status:         &bad,
		ScheduledStart: now,
		ScheduledEnd:   now.Add(time.Hour),
		ServiceID:      svcID,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, manager(uuid.New()), CreateInput{
		Title:          "foreign service",
		ScheduledStart: now,
		ScheduledEnd:   now.Add(time.Hour),
		ServiceID:      svcID,
	})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateRechecksWindow(t *testing.T) {
	svc, store := newTestService()
	org := uuid.New()
	ctx := context.Background()
	m, err := svc.Create(ctx, manager(org), CreateInput{
		Title:          "DB upgrade",
		ScheduledStart: now.Add(time.Hour),
		ScheduledEnd:   now.Add(2 * time.Hour),
		ServiceID:      store.addService(org),
	})
	require.NoError(t, err)

	early := now
	_, err = svc.Update(ctx, manager(org), m.ID, UpdateInput{ScheduledEnd: &early})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	inProgress := models.MaintenanceInProgress
	updated, err := svc.Update(ctx, manager(org), m.ID, UpdateInput{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, updated.Status)

	cancelled := models.MaintenanceCancelled
	updated, err = svc.Update(ctx, manager(org), m.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCancelled, updated.Status)
}

func TestPublicActiveWindow(t *testing.T) {
	svc, store := newTestService()
	org := uuid.New()
	svcID := store.addService(org)
	ctx := context.Background()
	root := policy.Principal{UserID: uuid.New(), IsSuperuser: true}

	mk := func(title string, start, end time.Time, active bool) {
		t.Helper()
		_, err := svc.Create(ctx, root, CreateInput{
			Title:          title,
			ScheduledStart: start,
			ScheduledEnd:   end,
			ServiceID:      svcID,
			IsActive:       &active,
		})
		require.NoError(t, err)
	}
	mk("ended 3 days ago", now.Add(-4*24*time.Hour), now.Add(-3*24*time.Hour), false)
	mk("ended 8 days ago", now.Add(-9*24*time.Hour), now.Add(-8*24*time.Hour), false)
	mk("old but active", now.Add(-30*24*time.Hour), now.Add(-29*24*time.Hour), true)
	mk("tomorrow", now.Add(24*time.Hour), now.Add(25*time.Hour), true)

	list, err := svc.PublicActive(ctx, policy.Unrestricted())
	require.NoError(t, err)
	titles := make([]string, 0, len(list))
	for _, m := range list {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"tomorrow", "ended 3 days ago", "old but active"}, titles)

	upcoming, err := svc.Upcoming(ctx, policy.Unrestricted())
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "tomorrow", upcoming[0].Title)

	other, err := svc.PublicActive(ctx, policy.Org(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestViewerCannotWrite(t *testing.T) {
	svc, store := newTestService()
	org := uuid.New()
	viewer := policy.Principal{UserID: uuid.New(), OrganizationID: &org, Role: models.RoleViewer}
	_, err := svc.Create(context.Background(), viewer, CreateInput{
		Title:          "x",
		ScheduledStart: now,
		ScheduledEnd:   now.Add(time.Hour),
		ServiceID:      store.addService(org),
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func window(svcID uuid.UUID) CreateInput {
	return CreateInput{
		Title:          "DB upgrade",
		ScheduledStart: now.Add(time.Hour),
		ScheduledEnd:   now.Add(2 * time.Hour),
		ServiceID:      svcID,
	}
}

func TestTenantIsolation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	m, err := svc.Create(ctx, manager(orgA), window(store.addService(orgA)))
	require.NoError(t, err)

	outsider := manager(orgB)
	_, err = svc.Get(ctx, outsider, m.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	title := "hijacked"
	_, err = svc.Update(ctx, outsider, m.ID, UpdateInput{Title: &title})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Delete(ctx, outsider, m.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := svc.List(ctx, outsider, utils.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Create(ctx, outsider, window(store.addService(orgA)))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := svc.Get(ctx, manager(orgA), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "DB upgrade", got.Title)
}

func TestCreateOrgOverride(t *testing.T) {
	svc, store := newTestService()
	orgA, orgB := uuid.New(), uuid.New()
	in := window(store.addService(orgA))
	in.OrganizationID = &orgB

	m, err := svc.Create(context.Background(), manager(orgA), in)
	require.NoError(t, err)
	assert.Equal(t, orgA, *m.OrganizationID)
}

func TestUpdateDropsOrgForNonSuperuser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	p := manager(orgA)
	m, err := svc.Create(ctx, p, window(store.addService(orgA)))
	require.NoError(t, err)

	m, err = svc.Update(ctx, p, m.ID, UpdateInput{OrganizationID: &orgB})
	require.NoError(t, err)
	assert.Equal(t, orgA, *m.OrganizationID)

	foreign := store.addService(orgB)
	_, err = svc.Update(ctx, p, m.ID, UpdateInput{ServiceID: &foreign})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	root := policy.Principal{UserID: uuid.New(), IsSuperuser: true}
	m, err = svc.Update(ctx, root, m.ID, UpdateInput{OrganizationID: &orgB})
	require.NoError(t, err)
	assert.Equal(t, orgB, *m.OrganizationID)
}

func TestTitleRejectsControlCharacters(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	org := uuid.New()
	in := window(store.addService(org))
	in.Title = "DB upgrade\r\nBcc: x@y.z"

	_, err := svc.Create(ctx, manager(org), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	m, err := svc.Create(ctx, manager(org), window(in.ServiceID))
	require.NoError(t, err)
	bad := "line\nbreak"
	_, err = svc.Update(ctx, manager(org), m.ID, UpdateInput{Title: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
