package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/database"
)

const userColumns = `id, email, password_hash, full_name, is_active, is_superuser, role, organization_id, created_at, updated_at`

// registrationLock is the advisory lock key serializing first-user bootstrap.
const registrationLock = 7461001

// Repository handles user and reset token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.IsActive, &u.IsSuperuser,
		&u.Role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return u, nil
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return u, nil
}

// RegisterUser counts users and inserts u under a transaction-scoped advisory lock.
func (r *Repository) RegisterUser(ctx context.Context, u *models.User, prepare func(u *models.User, existing int)) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registrationLock); err != nil {
			return err
		}
		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&existing); err != nil {
			return err
		}
		prepare(u, existing)
		const q = `INSERT INTO users (email, password_hash, full_name, is_active, is_superuser, role, organization_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`
		return tx.QueryRow(ctx, q, u.Email, u.Password, u.FullName, u.IsActive, u.IsSuperuser, string(u.Role), u.OrganizationID).
			Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	})
	return database.MapError(err, "user")
}

// UpdateUser writes the mutable account fields of u.
func (r *Repository) UpdateUser(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET email = $2, password_hash = $3, full_name = $4, is_active = $5,
		is_superuser = $6, role = $7, organization_id = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Email, u.Password, u.FullName, u.IsActive,
		u.IsSuperuser, string(u.Role), u.OrganizationID).Scan(&u.UpdatedAt)
	return database.MapError(err, "user")
}

// CreateResetToken stores a new reset token.
func (r *Repository) CreateResetToken(ctx context.Context, t *models.PasswordResetToken) error {
	const q = `INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3) RETURNING id, created_at, used`
	err := r.pool.QueryRow(ctx, q, t.UserID, t.Token, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt, &t.Used)
	return database.MapError(err, "reset token")
}

// GetResetToken returns a reset token by its secret value.
func (r *Repository) GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	const q = `SELECT id, user_id, token, expires_at, created_at, used FROM password_reset_tokens WHERE token = $1`
	var t models.PasswordResetToken
	err := r.pool.QueryRow(ctx, q, token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.Used)
	if err != nil {
		return nil, database.MapError(err, "reset token")
	}
	return &t, nil
}

// ConsumeResetToken marks the token used and updates the password in one transaction.
func (r *Repository) ConsumeResetToken(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE password_reset_tokens SET used = TRUE WHERE id = $1 AND used = FALSE`, tokenID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.Validation("invalid or expired reset token")
		}
		tag, err = tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("user")
		}
		return nil
	})
	return database.MapError(err, "user")
}
