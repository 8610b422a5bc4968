package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/database"
	"github.com/statio/backend/pkg/utils"
)

const userColumns = `id, email, password_hash, full_name, is_active, is_superuser, role, organization_id, created_at, updated_at`

// Repository handles tenant-scoped user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
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

// List returns users inside scope, oldest first.
func (r *Repository) List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY created_at OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, scope.Arg(), page.Skip, page.Limit)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, database.MapError(err, "user")
		}
		list = append(list, *u)
	}
	return list, database.MapError(rows.Err(), "user")
}

// Get returns a user by ID if it is inside scope.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return u, nil
}

// Create inserts a user. A taken email is a Conflict.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, password_hash, full_name, is_active, is_superuser, role, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.Email, u.Password, u.FullName, u.IsActive, u.IsSuperuser, string(u.Role), u.OrganizationID).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return database.MapError(err, "user with this email")
}

// Update writes every mutable field of u.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET email = $2, password_hash = $3, full_name = $4, is_active = $5,
		is_superuser = $6, role = $7, organization_id = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Email, u.Password, u.FullName, u.IsActive,
		u.IsSuperuser, string(u.Role), u.OrganizationID).Scan(&u.UpdatedAt)
	return database.MapError(err, "user with this email")
}

// Delete removes a user.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return database.MapError(pgx.ErrNoRows, "user")
	}
	return nil
}

// GetByEmail returns a user by email regardless of organization.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return u, nil
}

// AdminEmails returns the addresses of active admins of orgID. Superusers are
// included so incidents of unowned services still reach someone.
func (r *Repository) AdminEmails(ctx context.Context, orgID *uuid.UUID) ([]string, error) {
	const q = `SELECT email FROM users
		WHERE is_active AND (is_superuser OR ($1::uuid IS NOT NULL AND organization_id = $1 AND role = 'ADMIN'))
		ORDER BY email`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	defer rows.Close()
	emails := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, database.MapError(err, "user")
		}
		emails = append(emails, e)
	}
	return emails, database.MapError(rows.Err(), "user")
}
