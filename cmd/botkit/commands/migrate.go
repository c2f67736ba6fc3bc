package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/botkit/internal/cli/output"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/store"
	"github.com/spf13/cobra"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Bring the database schema up to date.

PostgreSQL databases are migrated with the embedded SQL migrations; SQLite
databases are migrated by GORM. Run this after upgrading botkit when
database.auto_migrate is disabled.

Examples:
  # Apply pending migrations
  botkit migrate

  # Show the current schema version
  botkit migrate --status`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show the schema version instead of migrating")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	if migrateStatus {
		status, err := store.Status(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		p := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, false)
		p.KeyValues([][2]string{
			{"Database", string(cfg.Database.Type)},
			{"Applied", fmt.Sprintf("%t", status.Applied)},
			{"Version", fmt.Sprintf("%d", status.Version)},
			{"Dirty", fmt.Sprintf("%t", status.Dirty)},
		})
		return nil
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)
	if err := store.Migrate(ctx, &cfg.Database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
