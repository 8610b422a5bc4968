package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/database"
)

type seedService struct {
	Name        string
	Description string
}

type seedIncident struct {
	Title       string
	Description string
	Service     int
	CreatedAt   time.Time
	ResolvedAt  time.Time
}

type seedMaintenance struct {
	Title       string
	Description string
	Service     int
	Start, End  time.Time
}

// seedData is the sample content loaded into an empty database. Service
// fields index into Services.
type seedData struct {
	OrgName, OrgSlug, OrgDescription string

	Services    []seedService
	Incident    seedIncident
	Maintenance seedMaintenance
}

func defaultSeed(now time.Time) seedData {
	now = now.UTC()
	return seedData{
		OrgName:        "Default Organization",
		OrgSlug:        "default",
		OrgDescription: "Default organization for Statio",
		Services: []seedService{
			{"Main Website", "Primary customer-facing website"},
			{"API Gateway", "Main API gateway service"},
			{"Database", "Primary database service"},
			{"CDN", "Content delivery network"},
		},
		Incident: seedIncident{
			Title:       "Scheduled Database Maintenance",
			Description: "Routine database maintenance to improve performance",
			Service:     2,
			CreatedAt:   now.Add(-48 * time.Hour),
			ResolvedAt:  now.Add(-24 * time.Hour),
		},
		Maintenance: seedMaintenance{
			Title:       "System Upgrade",
			Description: "Upgrading system components for better performance",
			Service:     0,
			Start:       now.Add(7 * 24 * time.Hour),
			End:         now.Add(7*24*time.Hour + 2*time.Hour),
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample data into an empty database",
		Long: `Create a default organization with four services, a resolved
incident and an upcoming maintenance. Nothing is written when any
organization already exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			created, err := seed(cmd.Context(), pool, defaultSeed(time.Now()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintln(out, "Initial data already exists. Skipping.")
				return nil
			}
			fmt.Fprintln(out, "Initial data created.")
			return nil
		},
	}
}

func seed(ctx context.Context, pool *pgxpool.Pool, data seedData) (bool, error) {
	created := false
	err := database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		var orgID uuid.UUID
		if err := tx.QueryRow(ctx, `INSERT INTO organizations (name, slug, description) VALUES ($1, $2, $3) RETURNING id`,
			data.OrgName, data.OrgSlug, data.OrgDescription).Scan(&orgID); err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		ids := make([]uuid.UUID, len(data.Services))
		for i, s := range data.Services {
			if err := tx.QueryRow(ctx, `INSERT INTO services (name, description, status, organization_id) VALUES ($1, $2, $3, $4) RETURNING id`,
				s.Name, s.Description, string(models.ServiceOperational), orgID).Scan(&ids[i]); err != nil {
				return fmt.Errorf("insert service %q: %w", s.Name, err)
			}
		}
		inc := data.Incident
		if _, err := tx.Exec(ctx, `INSERT INTO incidents (title, description, status, type, service_id, organization_id, is_active, created_at, updated_at, resolved_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8, $8)`,
			inc.Title, inc.Description, string(models.IncidentResolved), string(models.IncidentTypeIncident),
			ids[inc.Service], orgID, inc.CreatedAt, inc.ResolvedAt); err != nil {
			return fmt.Errorf("insert incident: %w", err)
		}
		m := data.Maintenance
		if _, err := tx.Exec(ctx, `INSERT INTO maintenances (title, description, status, scheduled_start, scheduled_end, organization_id, service_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.Title, m.Description, string(models.MaintenanceScheduled), m.Start, m.End, orgID, ids[m.Service]); err != nil {
			return fmt.Errorf("insert maintenance: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}
