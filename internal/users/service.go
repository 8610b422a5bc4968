package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/auth"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

// Store persists users within a tenant scope.
type Store interface {
	List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements user management for organization admins and superusers.
type Service struct {
	store  Store
	hasher auth.PasswordHasher
	logger *zap.Logger
}

// NewService creates the users service.
func NewService(store Store, hasher auth.PasswordHasher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, hasher: hasher, logger: logger}
}

// CreateInput describes a new user.
type CreateInput struct {
	Email          string
	Password       string
	FullName       *string
	Role           *models.Role
	IsActive       *bool
	IsSuperuser    *bool
	OrganizationID *uuid.UUID
}

// UpdateInput changes a user. Nil fields are left alone.
type UpdateInput struct {
	Email          *string
	Password       *string
	FullName       *string
	Role           *models.Role
	IsActive       *bool
	IsSuperuser    *bool
	OrganizationID *uuid.UUID
}

func (s *Service) hashPassword(pw string) (string, error) {
	if len(pw) < auth.MinPasswordLength {
		return "", apperr.Validation("password must be at least 8 characters")
	}
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return "", apperr.Internal("failed to hash password", err)
	}
	return hash, nil
}

// grantsSuperuser rejects a non-superuser trying to hand out the superuser flag.
func grantsSuperuser(p policy.Principal, requested *bool) error {
	if requested != nil && *requested && !p.IsSuperuser {
		return apperr.Forbidden("only superusers can grant superuser privileges")
	}
	return nil
}

// List returns users in p's organization, or every user for superusers.
func (s *Service) List(ctx context.Context, p policy.Principal, page utils.Page) ([]models.UserPublic, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUser, nil)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, d.Scope, page)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	return out, nil
}

// Get returns one user visible to p.
func (s *Service) Get(ctx context.Context, p policy.Principal, id uuid.UUID) (*models.UserPublic, error) {
	d, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUser, nil)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}

// Create adds a user. Admins always create into their own organization.
func (s *Service) Create(ctx context.Context, p policy.Principal, in CreateInput) (*models.UserPublic, error) {
	if _, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	if err := grantsSuperuser(p, in.IsSuperuser); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	role := models.RoleViewer
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation("invalid role")
		}
		role = *in.Role
	}
	orgID, err := policy.OwnedOrg(p, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:          email,
		Password:       hash,
		FullName:       in.FullName,
		IsActive:       true,
		Role:           role,
		OrganizationID: orgID,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	pub := u.ToPublic()
	return &pub, nil
}

// Update changes a user in p's scope. Organization changes from non-superusers
// are dropped.
func (s *Service) Update(ctx context.Context, p policy.Principal, id uuid.UUID, in UpdateInput) (*models.UserPublic, error) {
	d, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUser, nil)
	if err != nil {
		return nil, err
	}
	if err := grantsSuperuser(p, in.IsSuperuser); err != nil {
		return nil, err
	}
	u, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return nil, err
	}
	if u.IsSuperuser && !p.IsSuperuser {
		return nil, apperr.Forbidden("cannot modify a superuser")
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, apperr.Validation("email cannot be empty")
		}
		u.Email = email
	}
	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if in.FullName != nil {
		u.FullName = in.FullName
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation("invalid role")
		}
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil && p.IsSuperuser {
		u.IsSuperuser = *in.IsSuperuser
	}
	if in.OrganizationID != nil && policy.CanReassignOrg(p) {
		orgID := *in.OrganizationID
		u.OrganizationID = &orgID
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}

// Delete removes a user in p's scope. Users cannot delete themselves.
func (s *Service) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	d, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceUser, nil)
	if err != nil {
		return err
	}
	if id == p.UserID {
		return apperr.Validation("you cannot delete your own account")
	}
	u, err := s.store.Get(ctx, id, d.Scope)
	if err != nil {
		return err
	}
	if u.IsSuperuser && !p.IsSuperuser {
		return apperr.Forbidden("cannot delete a superuser")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}
