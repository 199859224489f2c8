package database

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// newGormLogger builds a GORM logger that redirects output into the package
// logger at the given level.
func newGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToUpper(level) {
	case "DEBUG":
		gormLevel = gormlogger.Info
	case "INFO", "WARN", "WARNING":
		gormLevel = gormlogger.Warn
	case "ERROR":
		gormLevel = gormlogger.Error
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(
		&gormWriter{},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormWriter redirects GORM log output to the package logger. SQL trace lines
// go to DEBUG, everything else to INFO.
type gormWriter struct{}

// Printf implements gormlogger.Writer.
func (w *gormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if strings.Contains(msg, "SELECT") || strings.Contains(msg, "INSERT") || strings.Contains(msg, "UPDATE") || strings.Contains(msg, "DELETE") {
		logger.Debugf("[GORM] %s", msg)
	} else {
		logger.Infof("[GORM] %s", msg)
	}
}
