package organizations

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/storage"
	"github.com/statio/backend/pkg/utils"
)

// Store persists organizations.
type Store interface {
	List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Organization, error)
	Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	Create(ctx context.Context, org *models.Organization) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LogoStore keeps organization logo files.
type LogoStore interface {
	PresignLogoUpload(ctx context.Context, key, contentType string) (string, error)
	PublicLogoURL(key string) string
	UploadLogo(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	PresignExpire() time.Duration
}

// Service implements organization management.
type Service struct {
	store  Store
	logos  LogoStore
	logger *zap.Logger
}

// NewService creates the organization service. logos may be nil when no bucket is configured.
func NewService(store Store, logos LogoStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logos: logos, logger: logger}
}

// CreateInput describes a new organization. Slug defaults to the name.
type CreateInput struct {
	Name        string
	Slug        *string
	Description *string
	LogoURL     *string
	IsActive    *bool
}

// UpdateInput changes an organization. Nil fields are left alone.
type UpdateInput struct {
	Name        *string
	Description *string
	LogoURL     *string
	IsActive    *bool
}

// LogoUpload is a pre-signed upload target for an organization logo.
type LogoUpload struct {
	UploadURL string `json:"upload_url"`
	LogoURL   string `json:"logo_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// List returns every organization for superusers and only their own for others.
func (s *Service) List(ctx context.Context, p policy.Principal, page utils.Page) ([]models.Organization, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceOrganization, nil)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, d.Scope, page)
}

// Get returns one organization visible to p.
func (s *Service) Get(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.Organization, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceOrganization, nil)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id, d.Scope)
}

// Create adds an organization. Slugs share one global namespace.
func (s *Service) Create(ctx context.Context, p policy.Principal, in CreateInput) (*models.Organization, error) {
	if _, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceOrganization, nil); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	source := name
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		source = *in.Slug
	}
	slug := utils.Slugify(source)
	if slug == "" {
		return nil, apperr.Validation("slug must contain at least one letter or digit")
	}

	if _, err := s.store.GetBySlug(ctx, slug); err == nil {
		return nil, apperr.Conflict("organization with this slug already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	org := &models.Organization{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		LogoURL:     in.LogoURL,
		IsActive:    true,
	}
	if in.IsActive != nil {
		org.IsActive = *in.IsActive
	}
	if err := s.store.Create(ctx, org); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("organization with this slug already exists")
		}
		return nil, err
	}
	s.logger.Info("organization created", zap.String("organization_id", org.ID.String()), zap.String("slug", org.Slug))
	return org, nil
}

// Update changes an organization. Admins may only update their own.
func (s *Service) Update(ctx context.Context, p policy.Principal, id uuid.UUID, in UpdateInput) (*models.Organization, error) {
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceOrganization, &id)
	if err != nil {
		return nil, err
	}
	org, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		org.Name = name
	}
	if in.Description != nil {
		org.Description = in.Description
	}
	if in.LogoURL != nil {
		org.LogoURL = in.LogoURL
	}
	if in.IsActive != nil {
		org.IsActive = *in.IsActive
	}
	if err := s.store.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Delete removes an organization.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if _, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceOrganization, nil); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("organization deleted", zap.String("organization_id", id.String()))
	return nil
}

func (s *Service) logoTarget(ctx context.Context, p policy.Principal, id uuid.UUID, contentType string) (*models.Organization, string, error) {
	if s.logos == nil {
		return nil, "", apperr.Validation("logo storage is not configured")
	}
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceOrganization, &id)
	if err != nil {
		return nil, "", err
	}
	org, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, "", err
	}
	ext, ok := storage.LogoExtension(contentType)
	if !ok {
		return nil, "", apperr.Validation("logo must be a JPEG, PNG, WebP or SVG image")
	}
	return org, storage.LogoKey(org.ID.String(), uuid.New().String(), ext), nil
}

// CreateLogoUpload returns a pre-signed URL the dashboard can PUT a logo to.
// The organization's logo_url is set by a later update once the upload is done.
func (s *Service) CreateLogoUpload(ctx context.Context, p policy.Principal, id uuid.UUID, contentType string) (*LogoUpload, error) {
	_, key, err := s.logoTarget(ctx, p, id, contentType)
	if err != nil {
		return nil, err
	}
	url, err := s.logos.PresignLogoUpload(ctx, key, contentType)
	if err != nil {
		return nil, apperr.Internal("failed to presign logo upload", err)
	}
	return &LogoUpload{
		UploadURL: url,
		LogoURL:   s.logos.PublicLogoURL(key),
		Key:       key,
		ExpiresIn: int(s.logos.PresignExpire().Seconds()),
	}, nil
}

// UploadLogo stores a logo sent through the API and points logo_url at it.
func (s *Service) UploadLogo(ctx context.Context, p policy.Principal, id uuid.UUID, contentType string, body io.Reader, size int64) (*models.Organization, error) {
	if size > storage.MaxLogoFileSize {
		return nil, apperr.Validation("logo exceeds the 2MB limit")
	}
	org, key, err := s.logoTarget(ctx, p, id, contentType)
	if err != nil {
		return nil, err
	}
	url, err := s.logos.UploadLogo(ctx, key, contentType, body, size)
	if err != nil {
		return nil, apperr.Internal("failed to upload logo", err)
	}
	org.LogoURL = &url
	if err := s.store.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// BySlug returns an active organization for public pages.
func (s *Service) BySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.store.GetBySlug(ctx, utils.Slugify(slug))
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, apperr.NotFound("organization")
	}
	return org, nil
}
