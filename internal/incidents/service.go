// Package incidents manages incidents and the progress updates posted on them.
package incidents

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

// Filter narrows incident listings. Nil fields match everything.
type Filter struct {
	ServiceID *uuid.UUID
	Status    *models.IncidentStatus
	IsActive  *bool
}

// Store persists incidents within a tenant scope.
type Store interface {
	List(ctx context.Context, scope policy.Scope, f Filter, page utils.Page) ([]models.Incident, error)
	Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Incident, error)
	ServiceOrg(ctx context.Context, serviceID uuid.UUID, scope policy.Scope) (*uuid.UUID, error)
	Create(ctx context.Context, i *models.Incident) error
	Update(ctx context.Context, i *models.Incident) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListUpdates(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentUpdate, error)
	AddUpdate(ctx context.Context, u *models.IncidentUpdate, parent *models.Incident) error
}

// Service implements the incident lifecycle.
type Service struct {
	store  Store
	sink   notify.Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the incidents service.
func NewService(store Store, sink notify.Sink, logger *zap.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sink: sink, logger: logger, now: time.Now}
}

// CreateInput describes a new incident.
type CreateInput struct {
	Title          string
	Description    *string
	Status         *models.IncidentStatus
	Type           *models.IncidentType
	ServiceID      uuid.UUID
	OrganizationID *uuid.UUID
	IsActive       *bool
}

// UpdateInput changes an incident. Nil fields are left alone.
type UpdateInput struct {
	Title          *string
	Description    *string
	Status         *models.IncidentStatus
	Type           *models.IncidentType
	ServiceID      *uuid.UUID
	OrganizationID *uuid.UUID
	IsActive       *bool
}

// UpdateNote is a progress update posted on an incident.
type UpdateNote struct {
	Message string
	Status  *models.IncidentStatus
}

func (s *Service) emit(ctx context.Context, t notify.EventType, inc *models.Incident, upd *models.IncidentUpdate) {
	s.sink.Send(ctx, notify.Event{
		Type:           t,
		OrganizationID: inc.OrganizationID,
		Payload:        notify.IncidentChange{Incident: inc, Update: upd},
	})
}

func validStatus(st *models.IncidentStatus) error {
	if st != nil && !st.Valid() {
		return apperr.Validation("invalid incident status")
	}
	return nil
}

func validType(t *models.IncidentType) error {
	if t != nil && !t.Valid() {
		return apperr.Validation("invalid incident type")
	}
	return nil
}

// List returns incidents in p's scope.
func (s *Service) List(ctx context.Context, p policy.Principal, f Filter, page utils.Page) ([]models.Incident, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	if err := validStatus(f.Status); err != nil {
		return nil, err
	}
	return s.store.List(ctx, d.Scope, f, page)
}

// Get returns an incident in p's scope together with its updates.
func (s *Service) Get(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Incident, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	inc, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	updates, err := s.store.ListUpdates(ctx, inc.ID)
	if err != nil {
		return nil, err
	}
	inc.Updates = updates
	return inc, nil
}

// Create opens an incident against a service visible to p.
func (s *Service) Create(ctx context.Context, p policy.Principal, in CreateInput) (*models.Incident, error) {
	d, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceIncident, nil)
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
	if err := validStatus(in.Status); err != nil {
		return nil, err
	}
	if err := validType(in.Type); err != nil {
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

	now := s.now()
	inc := &models.Incident{
		Title:          title,
		Description:    in.Description,
		Status:         models.IncidentInvestigating,
		Type:           models.IncidentTypeIncident,
		ServiceID:      in.ServiceID,
		OrganizationID: orgID,
		IsActive:       true,
	}
	if in.Status != nil {
		inc.SetStatus(*in.Status, now)
	}
	if in.Type != nil {
		inc.Type = *in.Type
	}
	if in.IsActive != nil {
		inc.IsActive = *in.IsActive
	}
	if err := s.store.Create(ctx, inc); err != nil {
		return nil, err
	}
	s.logger.Info("incident created",
		zap.String("incident_id", inc.ID.String()),
		zap.String("service_id", inc.ServiceID.String()),
		zap.String("status", string(inc.Status)))
	s.emit(ctx, notify.EventIncidentCreated, inc, nil)
	return inc, nil
}

// Update changes an incident in p's scope. resolved_at is stamped on the
// first transition to resolved and kept afterwards.
func (s *Service) Update(ctx context.Context, p policy.Principal, id uuid.UUID, in UpdateInput) (*models.Incident, error) {
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	if err := validStatus(in.Status); err != nil {
		return nil, err
	}
	if err := validType(in.Type); err != nil {
		return nil, err
	}
	inc, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	wasResolved := inc.Status == models.IncidentResolved

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		if utils.HasControl(title) {
			return nil, apperr.Validation("title must not contain control characters")
		}
		inc.Title = title
	}
	if in.Description != nil {
		inc.Description = in.Description
	}
	if in.Status != nil {
		inc.SetStatus(*in.Status, s.now())
	}
	if in.Type != nil {
		inc.Type = *in.Type
	}
	if in.ServiceID != nil && *in.ServiceID != inc.ServiceID {
		if _, err := s.store.ServiceOrg(ctx, *in.ServiceID, d.Scope); err != nil {
			return nil, err
		}
		inc.ServiceID = *in.ServiceID
	}
	if in.IsActive != nil {
		inc.IsActive = *in.IsActive
	}
	if in.OrganizationID != nil && policy.CanReassignOrg(p) {
		orgID := *in.OrganizationID
		inc.OrganizationID = &orgID
	}
	if err := s.store.Update(ctx, inc); err != nil {
		return nil, err
	}

	event := notify.EventIncidentUpdated
	if !wasResolved && inc.Status == models.IncidentResolved {
		event = notify.EventIncidentResolved
	}
	s.emit(ctx, event, inc, nil)
	return inc, nil
}

// Delete removes an incident in p's scope.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Incident, error) {
	d, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	inc, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventIncidentDeleted, inc, nil)
	return inc, nil
}

// ListUpdates returns the updates of an incident in p's scope.
func (s *Service) ListUpdates(ctx context.Context, p policy.Principal, incidentID uuid.UUID) ([]models.IncidentUpdate, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, incidentID, d.Scope); err != nil {
		return nil, err
	}
	return s.store.ListUpdates(ctx, incidentID)
}

// CreateUpdate posts a progress update. When the note carries a status it is
// applied to the parent incident, and both rows are written atomically.
func (s *Service) CreateUpdate(ctx context.Context, p policy.Principal, incidentID uuid.UUID, note UpdateNote) (*models.IncidentUpdate, error) {
	d, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceIncident, nil)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(note.Message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	if err := validStatus(note.Status); err != nil {
		return nil, err
	}
	inc, err := s.store.Get(ctx, incidentID, d.Scope)
	if err != nil {
		return nil, err
	}
	wasResolved := inc.Status == models.IncidentResolved

	upd := &models.IncidentUpdate{
		IncidentID:     inc.ID,
		OrganizationID: inc.OrganizationID,
		Message:        message,
		Status:         note.Status,
	}
	var parent *models.Incident
	if note.Status != nil {
		inc.SetStatus(*note.Status, s.now())
		parent = inc
	}
	if err := s.store.AddUpdate(ctx, upd, parent); err != nil {
		return nil, err
	}

	event := notify.EventIncidentUpdatePosted
	if !wasResolved && inc.Status == models.IncidentResolved {
		event = notify.EventIncidentResolved
	}
	s.emit(ctx, event, inc, upd)
	return upd, nil
}
