package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
)

func TestResolve(t *testing.T) {
	svc, store, _ := newTestService(t)
	u := register(t, svc, "ops@example.com")
	orgID := uuid.New()
	store.users[u.ID].OrganizationID = &orgID
	store.users[u.ID].Role = models.RoleManager

	jwt := NewJWTService("secret", 30)
	r := NewResolver(jwt, store)
	token, err := jwt.Generate(u.ID, u.Email)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, &orgID, p.OrganizationID)
	assert.Equal(t, models.RoleManager, p.Role)
	assert.True(t, p.IsSuperuser, "first registered user")

	store.setActive(u.ID, false)
	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	ghost, err := jwt.Generate(uuid.New(), "ghost@example.com")
	require.NoError(t, err)
	_, unknownErr := r.Resolve(context.Background(), ghost)
	assert.Equal(t, unknownErr.Error(), err.Error(), "inactive and unknown users look the same")
}

func TestResolveRejectsUnknownUserAndGarbage(t *testing.T) {
	jwt := NewJWTService("secret", 30)
	r := NewResolver(jwt, newMemStore())

	token, err := jwt.Generate(uuid.New(), "ghost@example.com")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = r.Resolve(context.Background(), "garbage")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}
