// Package metrics defines the run-accounting recorder interface and its
// Prometheus and no-op implementations.
package metrics

import (
	"time"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

// Recorder observes the progress of an ingestion run.
type Recorder interface {
	// RecordRead counts one raw record read from the source.
	RecordRead(table string)
	// RecordSkipped counts one record discarded during mapping.
	RecordSkipped(table string)
	// RecordFailed counts records that failed persistence or delivery.
	RecordFailed(table string, n int)
	// RecordInserted counts records committed to the destination table.
	RecordInserted(table string, n int)
	// RecordSent counts records whose metadata reached the remote API.
	RecordSent(table string, n int)
	// RecordBatch observes the wall-clock duration of one batch cycle.
	RecordBatch(table string, d time.Duration)
	// RecordRunCompleted records the final outcome of a run.
	RecordRunCompleted(table string, summary model.IngestionSummary, d time.Duration, err error)
}
