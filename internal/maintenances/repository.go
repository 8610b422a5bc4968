package maintenances

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/database"
	"github.com/statio/backend/pkg/utils"
)

const maintenanceColumns = `id, title, description, status, scheduled_start, scheduled_end, organization_id, is_active, service_id, created_at, updated_at`

// Repository handles maintenance persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a maintenances repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMaintenance(row pgx.Row) (*models.Maintenance, error) {
	var m models.Maintenance
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Status, &m.ScheduledStart, &m.ScheduledEnd,
		&m.OrganizationID, &m.IsActive, &m.ServiceID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]models.Maintenance, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, database.MapError(err, "maintenance")
	}
	defer rows.Close()
	list := []models.Maintenance{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, database.MapError(err, "maintenance")
		}
		list = append(list, *m)
	}
	return list, database.MapError(rows.Err(), "maintenance")
}

// List returns maintenances inside scope, latest start first.
func (r *Repository) List(ctx context.Context, scope policy.Scope, page utils.Page) ([]models.Maintenance, error) {
	const q = `SELECT ` + maintenanceColumns + ` FROM maintenances
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY scheduled_start DESC OFFSET $2 LIMIT $3`
	return r.query(ctx, q, scope.Arg(), page.Skip, page.Limit)
}

// Get returns a maintenance by ID if it is inside scope.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Maintenance, error) {
	const q = `SELECT ` + maintenanceColumns + ` FROM maintenances WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	m, err := scanMaintenance(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "maintenance")
	}
	return m, nil
}

// ServiceOrg returns the organization of a service inside scope.
func (r *Repository) ServiceOrg(ctx context.Context, serviceID uuid.UUID, scope policy.Scope) (*uuid.UUID, error) {
	const q = `SELECT organization_id FROM services WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	var org *uuid.UUID
	if err := r.pool.QueryRow(ctx, q, serviceID, scope.Arg()).Scan(&org); err != nil {
		return nil, database.MapError(err, "service")
	}
	return org, nil
}

// Create inserts a maintenance.
func (r *Repository) Create(ctx context.Context, m *models.Maintenance) error {
	const q = `INSERT INTO maintenances (title, description, status, scheduled_start, scheduled_end, organization_id, is_active, service_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, m.Title, m.Description, string(m.Status), m.ScheduledStart, m.ScheduledEnd,
		m.OrganizationID, m.IsActive, m.ServiceID).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return database.MapError(err, "maintenance")
}

// Update writes the mutable fields of m.
func (r *Repository) Update(ctx context.Context, m *models.Maintenance) error {
	const q = `UPDATE maintenances SET title = $2, description = $3, status = $4, scheduled_start = $5, scheduled_end = $6,
		organization_id = $7, is_active = $8, service_id = $9, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, m.ID, m.Title, m.Description, string(m.Status), m.ScheduledStart, m.ScheduledEnd,
		m.OrganizationID, m.IsActive, m.ServiceID).Scan(&m.UpdatedAt)
	return database.MapError(err, "maintenance")
}

// Delete removes a maintenance.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM maintenances WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "maintenance")
	}
	if tag.RowsAffected() == 0 {
		return database.MapError(pgx.ErrNoRows, "maintenance")
	}
	return nil
}

// Visible returns maintenances inside scope that are active or ended after
// since, latest start first.
func (r *Repository) Visible(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Maintenance, error) {
	const q = `SELECT ` + maintenanceColumns + ` FROM maintenances
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		  AND (is_active OR scheduled_end >= $2)
		ORDER BY scheduled_start DESC`
	return r.query(ctx, q, scope.Arg(), since)
}

// Upcoming returns active maintenances inside scope ending at or after now,
// earliest start first.
func (r *Repository) Upcoming(ctx context.Context, scope policy.Scope, now time.Time) ([]models.Maintenance, error) {
	const q = `SELECT ` + maintenanceColumns + ` FROM maintenances
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		  AND is_active AND scheduled_end >= $2
		ORDER BY scheduled_start ASC`
	return r.query(ctx, q, scope.Arg(), now)
}
