// Package maintenances manages planned maintenance windows.
package maintenances

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

// RecentWindow is how long an ended maintenance stays on public pages.
const RecentWindow = 7 * 24 * time.Hour

// Store persists maintenances within a tenant scope.
type Store interface {
	List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Maintenance, error)
	Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Maintenance, error)
	ServiceOrg(ctx context.Context, serviceID uuid.UUID, scope policy.Scope) (*uuid.UUID, error)
	Create(ctx context.Context, m *models.Maintenance) error
	Update(ctx context.Context, m *models.Maintenance) error
	Delete(ctx context.Context, id uuid.UUID) error
	Visible(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Maintenance, error)
	Upcoming(ctx context.Context, scope policy.Scope, now time.Time) ([]models.Maintenance, error)
}

// Service implements the maintenance lifecycle. Status changes are always
// explicit; nothing moves a window between states on its own.
type Service struct {
	store  Store
	sink   notify.Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the maintenances service.
func NewService(store Store, sink notify.Sink, logger *zap.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sink: sink, logger: logger, now: time.Now}
}

// CreateInput describes a new maintenance window.
type CreateInput struct {
	Title          string
	Description    *string
	Status         *models.MaintenanceStatus
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	ServiceID      uuid.UUID
	OrganizationID *uuid.UUID
	IsActive       *bool
}

// UpdateInput changes a maintenance. Nil fields are left alone.
type UpdateInput struct {
	Title          *string
	Description    *string
	Status         *models.MaintenanceStatus
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ServiceID      *uuid.UUID
	OrganizationID *uuid.UUID
	IsActive       *bool
}

func validWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("scheduled_start and scheduled_end are required")
	}
	if !end.After(start) {
		return apperr.Validation("scheduled_end must be after scheduled_start")
	}
	return nil
}

func validStatus(st *models.MaintenanceStatus) error {
	if st != nil && !st.Valid() {
		return apperr.Validation("invalid maintenance status")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, t notify.EventType, m *models.Maintenance) {
	s.sink.Send(ctx, notify.Event{Type: t, OrganizationID: m.OrganizationID, Payload: m})
}

// List returns maintenances in p's scope.
func (s *Service) List(ctx context.Context, p policy.Principal, page utils.Page) ([]models.Maintenance, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceMaintenance, nil)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, d.Scope, page)
}

// Get returns a maintenance in p's scope.
func (s *Service) Get(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Maintenance, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceMaintenance, nil)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id, d.Scope)
}

// Create schedules a maintenance against a service visible to p.
func (s *Service) Create(ctx context.Context, p policy.Principal, in CreateInput) (*models.Maintenance, error) {
	d, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceMaintenance, nil)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if utils.HasControl(title) {
		return nil, apperr.Validation("title must not contain control characters")
	}
	if err := validWindow(in.ScheduledStart, in.ScheduledEnd); err != nil {
		return nil, err
	}
	if err := validStatus(in.Status); err != nil {
		return nil, err
	}
	serviceOrg, err := s.store.ServiceOrg(ctx, in.ServiceID, d.Scope)
	if err != nil {
		return nil, err
	}
	orgID, err := policy.OwnedOrg(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if orgID == nil {
		orgID = serviceOrg
	}
	m := &models.Maintenance{
		Title:          title,
		Description:    in.Description,
		Status:         models.MaintenanceScheduled,
		ScheduledStart: in.ScheduledStart,
		ScheduledEnd:   in.ScheduledEnd,
		OrganizationID: orgID,
		IsActive:       true,
		ServiceID:      in.ServiceID,
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("maintenance scheduled",
		zap.String("maintenance_id", m.ID.String()),
		zap.Time("scheduled_start", m.ScheduledStart))
	s.emit(ctx, notify.EventMaintenanceCreated, m)
	return m, nil
}

// Update changes a maintenance in p's scope.
func (s *Service) Update(ctx context.Context, p policy.Principal, id uuid.UUID, in UpdateInput) (*models.Maintenance, error) {
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceMaintenance, nil)
	if err != nil {
		return nil, err
	}
	if err := validStatus(in.Status); err != nil {
		return nil, err
	}
	m, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		if utils.HasControl(title) {
			return nil, apperr.Validation("title must not contain control characters")
		}
		m.Title = title
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	if in.ScheduledStart != nil {
		m.ScheduledStart = *in.ScheduledStart
	}
	if in.ScheduledEnd != nil {
		m.ScheduledEnd = *in.ScheduledEnd
	}
	if err := validWindow(m.ScheduledStart, m.ScheduledEnd); err != nil {
		return nil, err
	}
	if in.ServiceID != nil && *in.ServiceID != m.ServiceID {
		if _, err := s.store.ServiceOrg(ctx, *in.ServiceID, d.Scope); err != nil {
			return nil, err
		}
		m.ServiceID = *in.ServiceID
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.OrganizationID != nil && policy.CanReassignOrg(p) {
		orgID := *in.OrganizationID
		m.OrganizationID = &orgID
	}
	if err := s.store.Update(ctx, m); err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventMaintenanceUpdated, m)
	return m, nil
}

// Delete removes a maintenance in p's scope.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Maintenance, error) {
	d, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceMaintenance, nil)
	if err != nil {
		return nil, err
	}
	m, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventMaintenanceDeleted, m)
	return m, nil
}

// PublicActive returns maintenances that are active or ended within the last
// seven days, latest start first.
func (s *Service) PublicActive(ctx context.Context, scope policy.Scope) ([]models.Maintenance, error) {
	return s.store.Visible(ctx, scope, s.now().Add(-RecentWindow))
}

// Upcoming returns active maintenances that have not ended yet, soonest first.
func (s *Service) Upcoming(ctx context.Context, scope policy.Scope) ([]models.Maintenance, error) {
	return s.store.Upcoming(ctx, scope, s.now())
}

// PublicGet returns one maintenance for public pages.
func (s *Service) PublicGet(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Maintenance, error) {
	return s.store.Get(ctx, id, scope)
}
