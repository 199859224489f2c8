package metrics

import (
	"time"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

// NoOpRecorder is a Recorder that does nothing. It is the default when
// metrics are not wired up.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a new instance of NoOpRecorder.
func NewNoOpRecorder() Recorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) RecordRead(table string)            {}
func (r *NoOpRecorder) RecordSkipped(table string)         {}
func (r *NoOpRecorder) RecordFailed(table string, n int)   {}
func (r *NoOpRecorder) RecordInserted(table string, n int) {}
func (r *NoOpRecorder) RecordSent(table string, n int)     {}
func (r *NoOpRecorder) RecordBatch(table string, d time.Duration) {}
func (r *NoOpRecorder) RecordRunCompleted(table string, summary model.IngestionSummary, d time.Duration, err error) {
}

// Verify interfaces
var _ Recorder = (*NoOpRecorder)(nil)
