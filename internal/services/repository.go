package services

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

const serviceColumns = `id, name, description, status, organization_id, is_active, created_at, updated_at`

// Repository handles service persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a services repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanService(row pgx.Row) (*models.Service, error) {
	var s models.Service
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.OrganizationID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns services inside scope ordered by name.
func (r *Repository) List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY name OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, scope.Arg(), page.Skip, page.Limit)
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	defer rows.Close()
	list := []models.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, database.MapError(err, "service")
		}
		list = append(list, *s)
	}
	return list, database.MapError(rows.Err(), "service")
}

// Get returns a service by ID if it is inside scope.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	s, err := scanService(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	return s, nil
}

// Create inserts a service.
func (r *Repository) Create(ctx context.Context, s *models.Service) error {
	const q = `INSERT INTO services (name, description, status, organization_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.Name, s.Description, string(s.Status), s.OrganizationID, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return database.MapError(err, "service")
}

// Update writes the mutable fields of s.
func (r *Repository) Update(ctx context.Context, s *models.Service) error {
	const q = `UPDATE services SET name = $2, description = $3, status = $4, organization_id = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Description, string(s.Status), s.OrganizationID, s.IsActive).Scan(&s.UpdatedAt)
	return database.MapError(err, "service")
}

// Delete removes a service and its incidents, maintenances and samples.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "service")
	}
	if tag.RowsAffected() == 0 {
		return database.MapError(pgx.ErrNoRows, "service")
	}
	return nil
}
