package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// InsertBatch upserts a batch of cleaned records into tableName, keyed by
// data_id. The whole batch is attempted in one statement first; when that
// fails the batch is retried row by row so one bad record cannot sink its
// batchmates. Returns the count of rows that made it in and the records that
// did not. A connection failure is not retried per row; it fails the run.
//
// id, created_at and data_id are never touched on conflict; everything else,
// including updated_at, is overwritten with the incoming values.
func (d *Database) InsertBatch(ctx context.Context, tableName string, batch []model.Record) (int, []model.FailedRecord, error) {
	if len(batch) == 0 {
		return 0, nil, nil
	}

	now := time.Now()
	rows := make([]map[string]interface{}, 0, len(batch))
	for _, rec := range batch {
		row := make(map[string]interface{}, len(rec)+1)
		for k, v := range rec {
			row[k] = v
		}
		row["updated_at"] = now
		rows = append(rows, row)
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: model.FieldDataID}},
		DoUpdates: clause.AssignmentColumns(updateColumns(rows[0])),
	}

	tx := d.db.WithContext(ctx).Table(tableName).Clauses(onConflict)
	err := tx.Create(rows).Error
	if err == nil {
		return len(batch), nil, nil
	}
	if isConnectionError(err) {
		return 0, nil, exception.New("database", "database connection failed during batch insert", err, false, true)
	}
	logger.Warnf("Bulk upsert of %d records into '%s' failed, retrying row by row: %s",
		len(batch), tableName, exception.ExtractErrorMessage(err))

	// Row-by-row fallback isolates the records the bulk statement choked on.
	inserted := 0
	var failed []model.FailedRecord
	for i, row := range rows {
		tx := d.db.WithContext(ctx).Table(tableName).Clauses(onConflict)
		if err := tx.Create(row).Error; err != nil {
			if isConnectionError(err) {
				return inserted, failed, exception.New("database", "database connection failed during batch insert", err, false, true)
			}
			failed = append(failed, model.NewFailedRecord(batch[i],
				exception.New("database", "row upsert failed", err, true, false)))
			continue
		}
		inserted++
	}
	return inserted, failed, nil
}

// isConnectionError separates a dead or unreachable connection from a row
// that the database rejected. Only the latter is worth a per-row retry.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"invalid connection",
		"bad connection",
		"closed network connection",
		"database is closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// updateColumns lists the columns rewritten on conflict: every incoming
// column except the identity and creation markers.
func updateColumns(row map[string]interface{}) []string {
	cols := make([]string, 0, len(row))
	for name := range row {
		switch name {
		case "id", "created_at", model.FieldDataID:
			continue
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}
