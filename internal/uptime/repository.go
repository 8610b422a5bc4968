package uptime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/database"
)

// Repository reads and writes uptime samples.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an uptime repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Service returns a service by ID if it is inside scope.
func (r *Repository) Service(ctx context.Context, id uuid.UUID, scope policy.Scope) (*models.Service, error) {
	var s models.Service
	err := r.pool.QueryRow(ctx, `SELECT id, name, status, organization_id, is_active FROM services
		WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`, id, scope.Arg()).
		Scan(&s.ID, &s.Name, &s.Status, &s.OrganizationID, &s.IsActive)
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	return &s, nil
}

// ActiveServices returns active services inside scope ordered by name.
func (r *Repository) ActiveServices(ctx context.Context, scope policy.Scope) ([]models.Service, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, status, organization_id, is_active FROM services
		WHERE is_active AND ($1::uuid IS NULL OR organization_id = $1) ORDER BY name`, scope.Arg())
	if err != nil {
		return nil, database.MapError(err, "service")
	}
	defer rows.Close()
	list := []models.Service{}
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Status, &s.OrganizationID, &s.IsActive); err != nil {
			return nil, database.MapError(err, "service")
		}
		list = append(list, s)
	}
	return list, database.MapError(rows.Err(), "service")
}

// Record inserts a sample.
func (r *Repository) Record(ctx context.Context, m *models.UptimeMetric) error {
	const q = `INSERT INTO uptime_metrics (service_id, organization_id, timestamp, status, response_time_ms, is_up)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.pool.QueryRow(ctx, q, m.ServiceID, m.OrganizationID, m.Timestamp, string(m.Status), m.ResponseTimeMs, m.IsUp).Scan(&m.ID)
	return database.MapError(err, "uptime metric")
}

// Samples returns samples of serviceIDs since the given time, oldest first.
func (r *Repository) Samples(ctx context.Context, serviceIDs []uuid.UUID, since time.Time) ([]models.UptimeMetric, error) {
	const q = `SELECT id, service_id, organization_id, timestamp, status, response_time_ms, is_up
		FROM uptime_metrics WHERE service_id = ANY($1) AND timestamp >= $2 ORDER BY timestamp`
	rows, err := r.pool.Query(ctx, q, serviceIDs, since)
	if err != nil {
		return nil, database.MapError(err, "uptime metric")
	}
	defer rows.Close()
	list := []models.UptimeMetric{}
	for rows.Next() {
		var m models.UptimeMetric
		if err := rows.Scan(&m.ID, &m.ServiceID, &m.OrganizationID, &m.Timestamp, &m.Status, &m.ResponseTimeMs, &m.IsUp); err != nil {
			return nil, database.MapError(err, "uptime metric")
		}
		list = append(list, m)
	}
	return list, database.MapError(rows.Err(), "uptime metric")
}

// IncidentTimes returns creation times of incidents opened since the given
// time, grouped by service.
func (r *Repository) IncidentTimes(ctx context.Context, serviceIDs []uuid.UUID, since time.Time) (map[uuid.UUID][]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT service_id, created_at FROM incidents
		WHERE service_id = ANY($1) AND created_at >= $2`, serviceIDs, since)
	if err != nil {
		return nil, database.MapError(err, "incident")
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, database.MapError(err, "incident")
		}
		out[id] = append(out[id], at)
	}
	return out, database.MapError(rows.Err(), "incident")
}

// LastIncidents returns the creation time of each service's newest incident.
func (r *Repository) LastIncidents(ctx context.Context, serviceIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT service_id, MAX(created_at) FROM incidents
		WHERE service_id = ANY($1) GROUP BY service_id`, serviceIDs)
	if err != nil {
		return nil, database.MapError(err, "incident")
	}
	defer rows.Close()
	out := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, database.MapError(err, "incident")
		}
		out[id] = at
	}
	return out, database.MapError(rows.Err(), "incident")
}
