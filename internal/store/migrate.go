package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// entityTables in dependency order: children before the tables they
// reference, so deletes and drops never trip foreign keys.
var entityTables = []string{
	"contributor_badge",
	"badge_definition",
	"contributor_aggregate",
	"contributor_aggregate_definition",
	"global_aggregate",
	"activity",
	"contributor",
	"activity_definition",
}

// InitializeSchema applies the embedded migrations. It is idempotent
// and safe to run on every start; an already-current database is not
// an error.
func (s *SQLStore) InitializeSchema() error {
	var driver database.Driver
	var err error

	switch s.backend {
	case SQLiteBackend:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
		}
	case PostgreSQLBackend:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("failed to create PostgreSQL migrate driver: %w", err)
		}
	default:
		return fmt.Errorf("unsupported backend: %s", s.backend)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "tally", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// ClearAllData deletes every row from every entity table while keeping
// the schema in place. Intended for tests and local resets.
func ClearAllData(ctx context.Context, db Store) error {
	for _, table := range entityTables {
		if _, err := db.Execute(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// DropAllTables removes the entity tables and the migration bookkeeping
// table, returning the database to a pristine state.
func DropAllTables(ctx context.Context, db Store) error {
	tables := append(append([]string{}, entityTables...), "schema_migrations")
	for _, table := range tables {
		if _, err := db.Execute(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
