package incidents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

type memStore struct {
	mu        sync.Mutex
	services  map[uuid.UUID]*uuid.UUID
	incidents map[uuid.UUID]*models.Incident
	updates   []models.IncidentUpdate
	// failAddUpdate makes the next AddUpdate fail before anything is kept.
	failAddUpdate bool
}

func newMemStore() *memStore {
	return &memStore{
		services:  make(map[uuid.UUID]*uuid.UUID),
		incidents: make(map[uuid.UUID]*models.Incident),
	}
}

func (m *memStore) addService(org uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.services[id] = &org
	return id
}

func (m *memStore) List(_ context.Context, scope policy.Scope, f Filter, page utils.Page) ([]models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Incident{}
	for _, i := range m.incidents {
		if !scope.Matches(i.OrganizationID) {
			continue
		}
		if f.ServiceID != nil && i.ServiceID != *f.ServiceID {
			continue
		}
		if f.Status != nil && i.Status != *f.Status {
			continue
		}
		if f.IsActive != nil && i.IsActive != *f.IsActive {
			continue
		}
		out = append(out, *i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if page.Skip >= len(out) {
		return []models.Incident{}, nil
	}
	out = out[page.Skip:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID, scope policy.Scope) (*models.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.incidents[id]
	if !ok || !scope.Matches(i.OrganizationID) {
		return nil, apperr.NotFound("incident")
	}
	cp := *i
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

func (m *memStore) Create(_ context.Context, i *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.ID = uuid.New()
	i.CreatedAt = time.Now()
	i.UpdatedAt = i.CreatedAt
	cp := *i
	m.incidents[i.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, i *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(i)
}

func (m *memStore) updateLocked(i *models.Incident) error {
	if _, ok := m.incidents[i.ID]; !ok {
		return apperr.NotFound("incident")
	}
	i.UpdatedAt = time.Now()
	cp := *i
	cp.Updates = nil
	m.incidents[i.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[id]; !ok {
		return apperr.NotFound("incident")
	}
	delete(m.incidents, id)
	return nil
}

func (m *memStore) ListUpdates(_ context.Context, incidentID uuid.UUID) ([]models.IncidentUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.IncidentUpdate{}
	for i := len(m.updates) - 1; i >= 0; i-- {
		if m.updates[i].IncidentID == incidentID {
			out = append(out, m.updates[i])
		}
	}
	return out, nil
}

func (m *memStore) AddUpdate(_ context.Context, u *models.IncidentUpdate, parent *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddUpdate {
		m.failAddUpdate = false
		return apperr.Internal("database error", errors.New("connection reset"))
	}
	if parent != nil {
		if err := m.updateLocked(parent); err != nil {
			return err
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.updates = append(m.updates, *u)
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
