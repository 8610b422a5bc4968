package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statio/backend/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.Migrate(cmd.Context(), pool, logger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
