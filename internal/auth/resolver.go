package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
)

// UserGetter loads a user by ID.
type UserGetter interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver turns bearer tokens into principals.
type Resolver struct {
	jwt   *JWTService
	users UserGetter
}

// NewResolver creates a principal resolver.
func NewResolver(jwt *JWTService, users UserGetter) *Resolver {
	return &Resolver{jwt: jwt, users: users}
}

// Resolve validates token and loads its user. Missing, unknown and inactive
// users all fail with Unauthorized.
func (r *Resolver) Resolve(ctx context.Context, token string) (policy.Principal, error) {
	claims, err := r.jwt.Validate(token)
	if err != nil {
		return policy.Principal{}, apperr.Unauthorized("could not validate credentials")
	}
	id, err := claims.UserID()
	if err != nil {
		return policy.Principal{}, apperr.Unauthorized("could not validate credentials")
	}
	u, err := r.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return policy.Principal{}, apperr.Unauthorized("could not validate credentials")
		}
		return policy.Principal{}, err
	}
	if !u.IsActive {
		return policy.Principal{}, apperr.Unauthorized("could not validate credentials")
	}
	return PrincipalFor(u), nil
}

// PrincipalFor builds the principal acting as u.
func PrincipalFor(u *models.User) policy.Principal {
	return policy.Principal{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		IsSuperuser:    u.IsSuperuser,
	}
}
