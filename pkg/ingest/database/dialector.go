package database

import (
	"database/sql"
	"fmt"

	// Registers the mysql driver used for the create-database bootstrap
	// connection, which runs before GORM is opened.
	gosqlmysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// buildDialector maps the configured database type to a GORM dialector.
func buildDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "mysql":
		return mysql.Open(mysqlDSN(cfg, cfg.Name)), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, exception.Newf("database", "unsupported database type: %s", cfg.Type)
	}
}

// mysqlDSN builds a go-sql-driver DSN. dbName may be empty for a server-level
// connection.
func mysqlDSN(cfg config.DatabaseConfig, dbName string) string {
	mc := gosqlmysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = dbName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// ensureDatabase creates the target database when it does not exist yet.
// Only MySQL needs this step; PostgreSQL databases are provisioned out of
// band and SQLite creates its file on open.
func ensureDatabase(cfg config.DatabaseConfig) error {
	if cfg.Type != "mysql" {
		return nil
	}

	db, err := sql.Open("mysql", mysqlDSN(cfg, ""))
	if err != nil {
		return exception.New("database", "failed to open server-level connection", err, false, true)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Name)); err != nil {
		return exception.New("database", fmt.Sprintf("failed to create database '%s'", cfg.Name), err, false, true)
	}
	logger.Debugf("Database '%s' is present", cfg.Name)
	return nil
}
