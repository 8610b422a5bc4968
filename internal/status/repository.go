package status

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/database"
)

const (
	serviceColumns     = `id, name, description, status, organization_id, is_active, created_at, updated_at`
	incidentColumns    = `id, title, description, status, type, service_id, organization_id, is_active, created_at, updated_at, resolved_at`
	maintenanceColumns = `id, title, description, status, scheduled_start, scheduled_end, organization_id, is_active, service_id, created_at, updated_at`
)

// Repository reads status page data with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a status repository.
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

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var i models.Incident
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Status, &i.Type, &i.ServiceID,
		&i.OrganizationID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt, &i.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ActiveServices returns active services inside scope ordered by name.
func (r *Repository) ActiveServices(ctx context.Context, scope policy.Scope) ([]models.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services
		WHERE is_active AND ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY name`
	rows, err := r.pool.Query(ctx, q, scope.Arg())
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

// ActiveService returns one active service inside scope.
func (r *Repository) ActiveService(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services
		WHERE id = $1 AND is_active AND ($2::uuid IS NULL OR organization_id = $2)`
	s, err := scanService(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	return s, nil
}

func (r *Repository) incidents(ctx context.Context, q string, args ...any) ([]models.Incident, error) {
	rows, err := r.pool.Query(ctx, q, args...)
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

// attachUpdates loads the updates created at or after since for each
// incident, newest first. A zero since loads all of them.
func (r *Repository) attachUpdates(ctx context.Context, incidents []models.Incident, since time.Time) error {
	if len(incidents) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(incidents))
	index := make(map[uuid.UUID]int, len(incidents))
	for k := range incidents {
		ids[k] = incidents[k].ID
		index[incidents[k].ID] = k
		incidents[k].Updates = []models.IncidentUpdate{}
	}
	const q = `SELECT id, incident_id, organization_id, message, status, created_at FROM incident_updates
		WHERE incident_id = ANY($1) AND created_at >= $2
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, ids, since)
	if err != nil {
		return database.MapError(err, "incident update")
	}
	defer rows.Close()
	for rows.Next() {
		var u models.IncidentUpdate
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.OrganizationID, &u.Message, &u.Status, &u.CreatedAt); err != nil {
			return database.MapError(err, "incident update")
		}
		k := index[u.IncidentID]
		incidents[k].Updates = append(incidents[k].Updates, u)
	}
	return database.MapError(rows.Err(), "incident update")
}

// ActiveIncidents returns active incidents inside scope, newest first, with all updates.
func (r *Repository) ActiveIncidents(ctx context.Context, scope policy.Scope) ([]models.Incident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM incidents
		WHERE is_active AND ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY created_at DESC`
	list, err := r.incidents(ctx, q, scope.Arg())
	if err != nil {
		return nil, err
	}
	if err := r.attachUpdates(ctx, list, time.Time{}); err != nil {
		return nil, err
	}
	return list, nil
}

// Incident returns one incident inside scope with all updates.
func (r *Repository) Incident(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Incident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	i, err := scanIncident(r.pool.QueryRow(ctx, q, id, scope.Arg()))
	if err != nil {
		return nil, database.MapError(err, "incident")
	}
	list := []models.Incident{*i}
	if err := r.attachUpdates(ctx, list, time.Time{}); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// IncidentsSince returns incidents inside scope created since, or updated
// through an incident update since, each with its updates from the window.
func (r *Repository) IncidentsSince(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Incident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM incidents i
		WHERE ($1::uuid IS NULL OR i.organization_id = $1)
		  AND (i.created_at >= $2 OR EXISTS (
		        SELECT 1 FROM incident_updates u WHERE u.incident_id = i.id AND u.created_at >= $2))
		ORDER BY i.created_at DESC`
	list, err := r.incidents(ctx, q, scope.Arg(), since)
	if err != nil {
		return nil, err
	}
	if err := r.attachUpdates(ctx, list, since); err != nil {
		return nil, err
	}
	return list, nil
}

// MaintenancesSince returns maintenances inside scope that start or end at or after since.
func (r *Repository) MaintenancesSince(ctx context.Context, scope policy.Scope, since time.Time) ([]models.Maintenance, error) {
	const q = `SELECT ` + maintenanceColumns + ` FROM maintenances
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		  AND (scheduled_start >= $2 OR scheduled_end >= $2)
		ORDER BY scheduled_start DESC`
	rows, err := r.pool.Query(ctx, q, scope.Arg(), since)
	if err != nil {
		return nil, database.MapError(err, "maintenance")
	}
	defer rows.Close()
	list := []models.Maintenance{}
	for rows.Next() {
		var m models.Maintenance
		err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Status, &m.ScheduledStart, &m.ScheduledEnd,
			&m.OrganizationID, &m.IsActive, &m.ServiceID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, database.MapError(err, "maintenance")
		}
		list = append(list, m)
	}
	return list, database.MapError(rows.Err(), "maintenance")
}

// ServiceNames returns the names of the given services. Unknown IDs are absent.
func (r *Repository) ServiceNames(ctx context.Context, ids []uuid.UUID) (ServiceNames, error) {
	names := ServiceNames{}
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM services WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, database.MapError(err, "service")
		}
		names[id] = name
	}
	return names, database.MapError(rows.Err(), "service")
}
