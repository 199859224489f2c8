package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// Run is one row of the ingestion_runs table.
type Run struct {
	RunID            string     `gorm:"column:run_id;primaryKey"`
	Table            string     `gorm:"column:table_name"`
	IngestorID       string     `gorm:"column:ingestor_id"`
	Status           string     `gorm:"column:status"`
	TotalRecords     int        `gorm:"column:total_records"`
	ProcessedRecords int        `gorm:"column:processed_records"`
	InsertedRecords  int        `gorm:"column:inserted_records"`
	APISentRecords   int        `gorm:"column:api_sent_records"`
	FailedRecords    int        `gorm:"column:failed_records"`
	SkippedRecords   int        `gorm:"column:skipped_records"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	FinishedAt       *time.Time `gorm:"column:finished_at"`
	ErrorMessage     string     `gorm:"column:error_message"`
}

// TableName implements the GORM table-name convention.
func (Run) TableName() string {
	return "ingestion_runs"
}

// Store records completed runs.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an open GORM handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RecordRun writes one finished run. The row is insert-only; a run is
// recorded exactly once, after its summary is final.
func (s *Store) RecordRun(ctx context.Context, tableName string, summary model.IngestionSummary, startedAt, finishedAt time.Time, runErr error) error {
	status := "completed"
	errMsg := ""
	if runErr != nil {
		status = "failed"
		errMsg = exception.ExtractErrorMessage(runErr)
	}

	run := Run{
		RunID:            uuid.New().String(),
		Table:            tableName,
		IngestorID:       summary.IngestorID,
		Status:           status,
		TotalRecords:     summary.TotalRecords,
		ProcessedRecords: summary.ProcessedRecords,
		InsertedRecords:  summary.InsertedRecords,
		APISentRecords:   summary.APISentRecords,
		FailedRecords:    summary.FailedRecords,
		SkippedRecords:   summary.SkippedRecords,
		StartedAt:        &startedAt,
		FinishedAt:       &finishedAt,
		ErrorMessage:     errMsg,
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return exception.New("history", "failed to record ingestion run", err, false, false)
	}
	return nil
}
