// Package services manages the components shown on a status page.
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

// Store persists services within a tenant scope.
type Store interface {
	List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Service, error)
	Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error)
	Create(ctx context.Context, s *models.Service) error
	Update(ctx context.Context, s *models.Service) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements service CRUD.
type Service struct {
	store  Store
	sink   notify.Sink
	logger *zap.Logger
}

// NewService creates the services service.
func NewService(store Store, sink notify.Sink, logger *zap.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sink: sink, logger: logger}
}

// CreateInput describes a new service.
type CreateInput struct {
	Name           string
	Description    *string
	Status         *models.ServiceStatus
	IsActive       *bool
	OrganizationID *uuid.UUID
}

// UpdateInput changes a service. Nil fields are left alone.
type UpdateInput struct {
	Name           *string
	Description    *string
	Status         *models.ServiceStatus
	IsActive       *bool
	OrganizationID *uuid.UUID
}

func (s *Service) emit(ctx context.Context, t notify.EventType, svc *models.Service) {
	s.sink.Send(ctx, notify.Event{Type: t, OrganizationID: svc.OrganizationID, Payload: svc})
}

// List returns services in p's scope.
func (s *Service) List(ctx context.Context, p policy.Principal, page utils.Page) ([]models.Service, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceService, nil)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, d.Scope, page)
}

// Get returns one service in p's scope.
func (s *Service) Get(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Service, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceService, nil)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id, d.Scope)
}

// Create adds a service to the organization p writes into.
func (s *Service) Create(ctx context.Context, p policy.Principal, in CreateInput) (*models.Service, error) {
	if _, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceService, nil); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	orgID, err := policy.OwnedOrg(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	svc := &models.Service{
		Name:           name,
		Description:    in.Description,
		Status:         models.ServiceOperational,
		OrganizationID: orgID,
		IsActive:       true,
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("invalid service status")
		}
		svc.Status = *in.Status
	}
	if in.IsActive != nil {
		svc.IsActive = *in.IsActive
	}
	if err := s.store.Create(ctx, svc); err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventServiceCreated, svc)
	return svc, nil
}

// Update changes a service in p's scope.
func (s *Service) Update(ctx context.Context, p policy.Principal, id uuid.UUID, in UpdateInput) (*models.Service, error) {
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceService, nil)
	if err != nil {
		return nil, err
	}
	svc, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		svc.Name = name
	}
	if in.Description != nil {
		svc.Description = in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("invalid service status")
		}
		svc.Status = *in.Status
	}
	if in.IsActive != nil {
		svc.IsActive = *in.IsActive
	}
	if in.OrganizationID != nil && policy.CanReassignOrg(p) {
		orgID := *in.OrganizationID
		svc.OrganizationID = &orgID
	}
	if err := s.store.Update(ctx, svc); err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventServiceUpdated, svc)
	return svc, nil
}

// Delete removes a service in p's scope.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Service, error) {
	d, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceService, nil)
	if err != nil {
		return nil, err
	}
	svc, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("service deleted", zap.String("service_id", id.String()))
	s.emit(ctx, notify.EventServiceDeleted, svc)
	return svc, nil
}
