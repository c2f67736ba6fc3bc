package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/store/migrations"
)

const migrationsTable = "schema_migrations"

// MigrationStatus describes the schema version of a PostgreSQL database.
type MigrationStatus struct {
	Version uint `json:"version" yaml:"version"`
	Dirty   bool `json:"dirty" yaml:"dirty"`
	Applied bool `json:"applied" yaml:"applied"`
}

// newMigrator opens a golang-migrate instance over the embedded migrations.
// The returned close function releases the database connection.
func newMigrator(ctx context.Context, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { _, _ = m.Close() }, nil
}

// runMigrations applies every pending migration. golang-migrate takes a
// PostgreSQL advisory lock, so concurrent instances do not race.
func runMigrations(ctx context.Context, dsn string) error {
	logger.InfoCtx(ctx, "Running database migrations")

	m, closeFn, err := newMigrator(ctx, dsn)
	if err != nil {
		return err
	}
	defer closeFn()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.InfoCtx(ctx, "No migrations to apply (database is up to date)")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		logger.InfoCtx(ctx, "Migrations completed successfully")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		logger.WarnCtx(ctx, "Database schema is in dirty state - manual intervention may be required", "version", version)
	}
	return nil
}

// Status reports the schema version. SQLite databases have no version table
// and always report Applied=false.
func Status(ctx context.Context, config *Config) (*MigrationStatus, error) {
	config.ApplyDefaults()
	if config.Type != DatabaseTypePostgres {
		return &MigrationStatus{}, nil
	}

	m, closeFn, err := newMigrator(ctx, config.Postgres.DSN())
	if err != nil {
		return nil, err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &MigrationStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Migrate brings the schema described by config up to date without keeping
// the store open. Used by the migrate command.
func Migrate(ctx context.Context, config *Config) error {
	cfg := *config
	cfg.AutoMigrate = true
	s, err := New(ctx, &cfg)
	if err != nil {
		return err
	}
	return s.Close()
}
