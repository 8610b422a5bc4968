package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

type memStore struct {
	mu       sync.Mutex
	services map[uuid.UUID]*models.Service
	order    []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{services: make(map[uuid.UUID]*models.Service)}
}

func (m *memStore) List(_ context.Context, scope policy.Scope, page utils.Page) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Service{}
	for _, id := range m.order {
		s, ok := m.services[id]
		if ok && scope.Matches(s.OrganizationID) {
			out = append(out, *s)
		}
	}
	if page.Skip >= len(out) {
		return []models.Service{}, nil
	}
	out = out[page.Skip:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok || !scope.Matches(s.OrganizationID) {
		return nil, apperr.NotFound("service")
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, s *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.services[s.ID] = &cp
	m.order = append(m.order, s.ID)
	return nil
}

func (m *memStore) Update(_ context.Context, s *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[s.ID]; !ok {
		return apperr.NotFound("service")
	}
	s.UpdatedAt = time.Now()
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return apperr.NotFound("service")
	}
	delete(m.services, id)
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureSink) Send(_ context.Context, ev notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) types() []notify.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.EventType, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func principal(org uuid.UUID, role models.Role) policy.Principal {
	return policy.Principal{UserID: uuid.New(), OrganizationID: &org, Role: role}
}

func TestCreateOverridesOrg(t *testing.T) {
	sink := &captureSink{}
	svc := NewService(newMemStore(), sink, nil)
	orgA, orgB := uuid.New(), uuid.New()

	created, err := svc.Create(context.Background(), principal(orgA, models.RoleManager), CreateInput{
		Name:           "API",
		OrganizationID: &orgB,
	})
	require.NoError(t, err)
	assert.Equal(t, orgA, *created.OrganizationID)
	assert.Equal(t, models.ServiceOperational, created.Status)
	assert.True(t, created.IsActive)
	assert.Equal(t, []notify.EventType{notify.EventServiceCreated}, sink.types())

	root := policy.Principal{UserID: uuid.New(), IsSuperuser: true}
	onBehalf, err := svc.Create(context.Background(), root, CreateInput{Name: "DB", OrganizationID: &orgB})
	require.NoError(t, err)
	assert.Equal(t, orgB, *onBehalf.OrganizationID)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	org := uuid.New()
	bad := models.ServiceStatus("down")

	_, err := svc.Create(context.Background(), principal(org, models.RoleViewer), CreateInput{Name: "API"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), principal(org, models.RoleManager), CreateInput{Name: " "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), principal(org, models.RoleManager), CreateInput{Name: "API", Status: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	orphan := policy.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	_, err = svc.Create(context.Background(), orphan, CreateInput{Name: "API"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestTenantIsolation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	mine, err := svc.Create(ctx, principal(orgA, models.RoleAdmin), CreateInput{Name: "API"})
	require.NoError(t, err)

	outsider := principal(orgB, models.RoleAdmin)
	_, err = svc.Get(ctx, outsider, mine.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	name := "pwned"
	_, err = svc.Update(ctx, outsider, mine.ID, UpdateInput{Name: &name})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Delete(ctx, outsider, mine.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := svc.List(ctx, outsider, utils.Page{Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateDropsOrgAndBroadcasts(t *testing.T) {
	sink := &captureSink{}
	svc := NewService(newMemStore(), sink, nil)
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	p := principal(orgA, models.RoleManager)
	created, err := svc.Create(ctx, p, CreateInput{Name: "API"})
	require.NoError(t, err)

	status := models.ServiceMajorOutage
	updated, err := svc.Update(ctx, p, created.ID, UpdateInput{Status: &status, OrganizationID: &orgB})
	require.NoError(t, err)
	assert.Equal(t, models.ServiceMajorOutage, updated.Status)
	assert.Equal(t, orgA, *updated.OrganizationID)

	deleted, err := svc.Delete(ctx, p, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	assert.Equal(t, []notify.EventType{
		notify.EventServiceCreated,
		notify.EventServiceUpdated,
		notify.EventServiceDeleted,
	}, sink.types())
	assert.Equal(t, "status", sink.events[1].Type.Topic())
}
