// Package history persists the outcome of each ingestion run in an
// ingestion_runs table, provisioned through versioned migrations.
package history

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationsTable tracks applied schema versions, kept separate from the
// destination data tables.
const migrationsTable = "ingestion_schema_migrations"

// Migrate applies all pending run-history migrations against sqlDB.
func Migrate(sqlDB *sql.DB, dialect string) error {
	driver, err := databaseDriver(sqlDB, dialect)
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return exception.New("history", "failed to load embedded migrations", err, false, false)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dialect, driver)
	if err != nil {
		return exception.New("history", "failed to create migrate instance", err, false, false)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return exception.New("history", "run-history migration failed", err, false, true)
	}
	logger.Debugf("Run-history schema is up to date")
	return nil
}

// databaseDriver builds the migrate driver for the configured dialect.
func databaseDriver(sqlDB *sql.DB, dialect string) (migratedb.Driver, error) {
	switch dialect {
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: migrationsTable})
	default:
		return nil, exception.Newf("history", "unsupported database type for migration: %s", dialect)
	}
}
