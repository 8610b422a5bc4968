// statusctl performs administrative tasks against the status page database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statio/backend/config"
	"github.com/statio/backend/pkg/database"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "statusctl",
		Short: "Administer a Statio deployment",
		Long: `statusctl manages the Statio database.

It can apply the schema, load sample data for a fresh install and
change a user's role, organization or superuser flag.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newSetRoleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect loads configuration and opens the database pool.
func connect(ctx context.Context) (*pgxpool.Pool, *zap.Logger, error) {
	logger := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, logger, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := config.Build()
	return logger
}
