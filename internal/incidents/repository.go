package incidents

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

const (
	incidentColumns = `id, title, description, status, type, service_id, organization_id, is_active, created_at, updated_at, resolved_at`
	updateColumns   = `id, incident_id, organization_id, message, status, created_at`
)

// Repository handles incident and incident update persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an incidents repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var i models.Incident
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Status, &i.Type, &i.ServiceID,
		&i.OrganizationID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt, &i.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func scanUpdate(row pgx.Row) (*models.IncidentUpdate, error) {
	var u models.IncidentUpdate
	if err := row.Scan(&u.ID, &u.IncidentID, &u.OrganizationID, &u.Message, &u.Status, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns incidents inside scope matching f, newest first.
func (r *Repository) List(ctx context.Context, scope policy.Scope, f Filter, page utils.Page) ([]models.Incident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM incidents
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		  AND ($2::uuid IS NULL OR service_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::boolean IS NULL OR is_active = $4)
		ORDER BY created_at DESC OFFSET $5 LIMIT $6`
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	rows, err := r.pool.Query(ctx, q, scope.Arg(), f.ServiceID, status, f.IsActive, page.Skip, page.Limit)
	if err != nil {
		return nil, database.MapError(err, "incident")
	}
	defer rows.Close()
	list := []models.Incident{}
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, database.MapError(err, "incident")
		}
		list = append(list, *i)
	}
	return list, database.MapError(rows.Err(), "incident")
}

// Get returns an incident by ID if it is inside scope.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Incident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	i, err := scanIncident(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "incident")
	}
	return i, nil
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

// Create inserts an incident.
func (r *Repository) Create(ctx context.Context, i *models.Incident) error {
	const q = `INSERT INTO incidents (title, description, status, type, service_id, organization_id, is_active, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, i.Title, i.Description, string(i.Status), string(i.Type), i.ServiceID,
		i.OrganizationID, i.IsActive, i.ResolvedAt).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	return database.MapError(err, "incident")
}

const updateIncidentSQL = `UPDATE incidents SET title = $2, description = $3, status = $4, type = $5, service_id = $6,
	organization_id = $7, is_active = $8, resolved_at = $9, updated_at = NOW()
	WHERE id = $1 RETURNING updated_at`

func updateIncident(ctx context.Context, row func(ctx context.Context, sql string, args ...any) pgx.Row, i *models.Incident) error {
	return row(ctx, updateIncidentSQL, i.ID, i.Title, i.Description, string(i.Status), string(i.Type), i.ServiceID,
		i.OrganizationID, i.IsActive, i.ResolvedAt).Scan(&i.UpdatedAt)
}

// Update writes the mutable fields of i.
func (r *Repository) Update(ctx context.Context, i *models.Incident) error {
	return database.MapError(updateIncident(ctx, r.pool.QueryRow, i), "incident")
}

// Delete removes an incident and its updates.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, "incident")
	}
	if tag.RowsAffected() == 0 {
		return database.MapError(pgx.ErrNoRows, "incident")
	}
	return nil
}

// ListUpdates returns the updates of an incident, newest first.
func (r *Repository) ListUpdates(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentUpdate, error) {
	const q = `SELECT ` + updateColumns + ` FROM incident_updates WHERE incident_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, incidentID)
	if err != nil {
		return nil, database.MapError(err, "incident update")
	}
	defer rows.Close()
	list := []models.IncidentUpdate{}
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, database.MapError(err, "incident update")
		}
		list = append(list, *u)
	}
	return list, database.MapError(rows.Err(), "incident update")
}

// AddUpdate inserts u and, when parent is non-nil, writes the parent incident
// in the same transaction.
func (r *Repository) AddUpdate(ctx context.Context, u *models.IncidentUpdate, parent *models.Incident) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status *string
		if u.Status != nil {
			s := string(*u.Status)
			status = &s
		}
		const q = `INSERT INTO incident_updates (incident_id, organization_id, message, status)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at`
		if err := tx.QueryRow(ctx, q, u.IncidentID, u.OrganizationID, u.Message, status).Scan(&u.ID, &u.CreatedAt); err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		return updateIncident(ctx, tx.QueryRow, parent)
	})
	return database.MapError(err, "incident update")
}
