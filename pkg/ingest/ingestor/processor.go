package ingestor

import (
	"context"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

// Processor transforms a cleaned record before it is batched. Processors run
// in registration order; each receives the output of the previous one.
type Processor interface {
	// Process returns the transformed record.
	Process(ctx context.Context, record model.Record) (model.Record, error)
	// Cleanup releases resources held by the processor. It is called once
	// per run, on every exit path.
	Cleanup() error
}
