// Package database implements the relational persistence layer: destination
// table provisioning and idempotent chunked upserts keyed by data_id.
package database

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
	"github.com/tracebloc/ingestor/pkg/ingest/validator"
)

// Database wraps a GORM connection for one ingestion run.
type Database struct {
	db      *gorm.DB
	dialect string
}

// Open establishes the database connection described by cfg. For MySQL the
// target database is created first when missing.
func Open(cfg config.DatabaseConfig, logLevel string) (*Database, error) {
	if err := ensureDatabase(cfg); err != nil {
		return nil, err
	}

	dialector, err := buildDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, exception.New("database", "failed to open database connection", err, false, true)
	}

	logger.Infof("Connected to %s database '%s'", cfg.Type, cfg.Name)
	return &Database{db: db, dialect: cfg.Type}, nil
}

// NewWithDB wraps an existing GORM handle. Used by tests.
func NewWithDB(db *gorm.DB, dialect string) *Database {
	return &Database{db: db, dialect: dialect}
}

// Dialect returns the configured database type.
func (d *Database) Dialect() string {
	return d.dialect
}

// SQLDB exposes the underlying sql.DB, for components that work below GORM
// such as the run-history migrator.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.db.DB()
}

// GormDB exposes the GORM handle. Used by the run-history store.
func (d *Database) GormDB() *gorm.DB {
	return d.db
}

// HasTable reports whether the named table exists.
func (d *Database) HasTable(ctx context.Context, name string) (bool, error) {
	return d.db.WithContext(ctx).Migrator().HasTable(name), nil
}

// TableSchema reads the live column layout of the named table back into a
// Schema, excluding the standard bookkeeping columns.
func (d *Database) TableSchema(ctx context.Context, name string) (model.Schema, error) {
	columns, err := d.db.WithContext(ctx).Migrator().ColumnTypes(name)
	if err != nil {
		return nil, exception.New("database", "failed to read columns of table "+name, err, false, false)
	}

	schema := make(model.Schema, len(columns))
	for _, col := range columns {
		if IsStandardColumn(col.Name()) {
			continue
		}
		if full, ok := col.ColumnType(); ok {
			schema[col.Name()] = strings.ToUpper(full)
			continue
		}
		schema[col.Name()] = strings.ToUpper(col.DatabaseTypeName())
	}
	return schema, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Verify interfaces
var _ validator.TableExistenceChecker = (*Database)(nil)
