package organizations

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

const orgColumns = `id, name, slug, description, logo_url, is_active, created_at, updated_at`

// Repository handles organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Description, &o.LogoURL, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns organizations inside scope ordered by name.
func (r *Repository) List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations
		WHERE ($1::uuid IS NULL OR id = $1)
		ORDER BY name OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, scope.Arg(), page.Skip, page.Limit)
	if err != nil {
		return nil, database.MapError(err, "organization")
	}
	defer rows.Close()
	list := []models.Organization{}
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, database.MapError(err, "organization")
		}
		list = append(list, *o)
	}
	return list, database.MapError(rows.Err(), "organization")
}

// Get returns an organization by ID if it is inside scope.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1 AND ($2::uuid IS NULL OR id = $2)`
	o, err := scanOrg(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "organization")
	}
	return o, nil
}

// GetBySlug returns an organization by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	o, err := scanOrg(r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug = $1`, slug))
	if err != nil {
		return nil, database.MapError(err, "organization")
	}
	return o, nil
}

// Count returns the number of organizations.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n)
	return n, database.MapError(err, "organization")
}

// Create inserts an organization.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, slug, description, logo_url, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, org.Name, org.Slug, org.Description, org.LogoURL, org.IsActive).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	return database.MapError(err, "organization")
}

// Update writes the mutable fields of org.
func (r *Repository) Update(ctx context.Context, org *models.Organization) error {
	const q = `UPDATE organizations SET name = $2, description = $3, logo_url = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, org.ID, org.Name, org.Description, org.LogoURL, org.IsActive).Scan(&org.UpdatedAt)
	return database.MapError(err, "organization")
}

// Delete removes an organization and, by cascade, its tenant data.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "organization")
	}
	if tag.RowsAffected() == 0 {
		return database.MapError(pgx.ErrNoRows, "organization")
	}
	return nil
}
