package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// standardColumn is a column present in every destination table, independent
// of the user-declared schema.
type standardColumn struct {
	name string
	// one definition per dialect
	mysql    string
	postgres string
	sqlite   string
}

// standardColumns are prepended to every destination table. data_id carries
// the uniqueness constraint that makes upserts idempotent.
var standardColumns = []standardColumn{
	{"id",
		"BIGINT NOT NULL AUTO_INCREMENT",
		"BIGSERIAL",
		"INTEGER"},
	{"created_at",
		"DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	{"updated_at",
		"DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP",
		"TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"},
	{"status",
		"INT NOT NULL DEFAULT 0",
		"INT NOT NULL DEFAULT 0",
		"INTEGER NOT NULL DEFAULT 0"},
	{"label",
		"VARCHAR(255)",
		"VARCHAR(255)",
		"TEXT"},
	{"data_intent",
		"VARCHAR(100)",
		"VARCHAR(100)",
		"TEXT"},
	{"data_id",
		"VARCHAR(255) NOT NULL",
		"VARCHAR(255) NOT NULL",
		"TEXT NOT NULL"},
	{"annotation",
		"TEXT",
		"TEXT",
		"TEXT"},
	{"ingestor_id",
		"VARCHAR(100)",
		"VARCHAR(100)",
		"TEXT"},
}

// IsStandardColumn reports whether name is one of the columns every
// destination table carries regardless of schema.
func IsStandardColumn(name string) bool {
	for _, col := range standardColumns {
		if col.name == name {
			return true
		}
	}
	return false
}

// CreateTable creates the destination table when it does not exist yet.
// The table combines the standard columns with the schema-declared ones;
// calling it against an existing table is a no-op.
func (d *Database) CreateTable(ctx context.Context, tableName string, schema model.Schema) error {
	exists, _ := d.HasTable(ctx, tableName)
	if exists {
		logger.Debugf("Table '%s' already exists, skipping creation", tableName)
		return nil
	}

	ddl, err := d.buildCreateTable(tableName, schema)
	if err != nil {
		return err
	}
	if err := d.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return exception.New("database", fmt.Sprintf("failed to create table '%s'", tableName), err, false, true)
	}
	logger.Infof("Created table '%s' with %d schema columns", tableName, len(schema))
	return nil
}

// buildCreateTable renders the CREATE TABLE statement for the configured
// dialect. Schema columns are emitted in sorted order so the statement is
// deterministic.
func (d *Database) buildCreateTable(tableName string, schema model.Schema) (string, error) {
	var defs []string
	for _, col := range standardColumns {
		var typ string
		switch d.dialect {
		case "mysql":
			typ = col.mysql
		case "postgres":
			typ = col.postgres
		case "sqlite":
			typ = col.sqlite
		default:
			return "", exception.Newf("database", "unsupported database type: %s", d.dialect)
		}
		defs = append(defs, fmt.Sprintf("%s %s", d.quote(col.name), typ))
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if IsStandardColumn(name) {
			continue
		}
		typ, err := d.columnType(schema[name])
		if err != nil {
			return "", err
		}
		defs = append(defs, fmt.Sprintf("%s %s", d.quote(name), typ))
	}

	switch d.dialect {
	case "sqlite":
		// SQLite ties AUTOINCREMENT to the primary key definition.
		defs[0] = fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", d.quote("id"))
	default:
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", d.quote("id")))
	}
	defs = append(defs, fmt.Sprintf("UNIQUE (%s)", d.quote("data_id")))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(tableName), strings.Join(defs, ", ")), nil
}

// columnType translates a declared SQL type into the dialect's spelling.
// Declared types follow MySQL conventions (VARCHAR(n), INT, FLOAT, BOOLEAN,
// DATETIME, TEXT, BLOB).
func (d *Database) columnType(declared string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(declared))
	base := upper
	if i := strings.Index(base, "("); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "VARCHAR", "CHAR", "TEXT", "INT", "INTEGER", "BIGINT", "FLOAT",
		"DOUBLE", "BOOLEAN", "BOOL", "DATE", "DATETIME", "TIMESTAMP",
		"BLOB", "LONGBLOB":
	default:
		return "", exception.Newf("database", "unsupported column type: %s", declared)
	}

	if d.dialect == "postgres" {
		switch base {
		case "DATETIME":
			return "TIMESTAMP", nil
		case "FLOAT", "DOUBLE":
			return "DOUBLE PRECISION", nil
		case "BLOB", "LONGBLOB":
			return "BYTEA", nil
		}
	}
	return upper, nil
}

// quote wraps an identifier in the dialect's quoting characters.
func (d *Database) quote(name string) string {
	if d.dialect == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
