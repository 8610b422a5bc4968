package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/database"
	"github.com/statio/backend/pkg/utils"
)

type setRoleOptions struct {
	email     string
	role      string
	superuser bool
	orgSlug   string
}

func (o *setRoleOptions) normalize() error {
	o.email = strings.ToLower(strings.TrimSpace(o.email))
	if o.email == "" {
		return errors.New("--email is required")
	}
	o.role = strings.ToUpper(strings.TrimSpace(o.role))
	if !models.Role(o.role).Valid() {
		return fmt.Errorf("invalid role %q: use ADMIN, MANAGER or VIEWER", o.role)
	}
	if o.orgSlug != "" {
		o.orgSlug = utils.Slugify(o.orgSlug)
		if o.orgSlug == "" {
			return errors.New("--org is not a valid slug")
		}
	}
	return nil
}

func newSetRoleCmd() *cobra.Command {
	opts := &setRoleOptions{}

	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change a user's role",
		Long: `Set the role of an existing user. With --superuser the user is
also granted platform-wide access; with --org the user is moved into
the organization with that slug.`,
		Example: `  statusctl set-role --email ops@example.com --role ADMIN --org acme
  statusctl set-role --email root@example.com --role ADMIN --superuser`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.normalize(); err != nil {
				return err
			}
			pool, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := setRole(cmd.Context(), pool, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (superuser: %t)\n", opts.email, opts.role, opts.superuser)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email of the user to change")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleViewer), "Role: ADMIN, MANAGER or VIEWER")
	cmd.Flags().BoolVar(&opts.superuser, "superuser", false, "Grant superuser access")
	cmd.Flags().StringVar(&opts.orgSlug, "org", "", "Move the user into the organization with this slug")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func setRole(ctx context.Context, pool *pgxpool.Pool, opts *setRoleOptions) error {
	return database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var orgID *uuid.UUID
		if opts.orgSlug != "" {
			var id uuid.UUID
			if err := tx.QueryRow(ctx, `SELECT id FROM organizations WHERE slug = $1`, opts.orgSlug).Scan(&id); err != nil {
				return database.MapError(err, "organization "+opts.orgSlug)
			}
			orgID = &id
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET role = $2, is_superuser = $3,
			organization_id = COALESCE($4::uuid, organization_id), updated_at = NOW() WHERE email = $1`,
			opts.email, opts.role, opts.superuser, orgID)
		if err != nil {
			return database.MapError(err, "user")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no user with email %s", opts.email)
		}
		return nil
	})
}
