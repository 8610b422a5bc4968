package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/statio/backend/internal/models"
)

// Store persists accounts and password reset tokens.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// RegisterUser inserts u after prepare has seen how many users already
	// exist. Counting and inserting are serialized across callers.
	RegisterUser(ctx context.Context, u *models.User, prepare func(u *models.User, existing int)) error
	UpdateUser(ctx context.Context, u *models.User) error

	CreateResetToken(ctx context.Context, t *models.PasswordResetToken) error
	GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// ConsumeResetToken marks the token used and stores the new password hash
	// in one transaction. It fails with Validation if the token was already used.
	ConsumeResetToken(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string) error
}
