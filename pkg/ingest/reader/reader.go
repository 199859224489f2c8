// Package reader defines the record source contract and the file-format
// readers that implement it. A record source produces a lazy, finite,
// forward-only sequence of raw records; it is restartable only by re-opening,
// not resumable mid-stream.
package reader

import (
	"context"
	"io"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

// RecordSource is the contract consumed by the ingestion engine.
type RecordSource interface {
	// Open prepares the source for reading. It must be called before Read.
	Open(ctx context.Context) error
	// Read returns the next raw record, or io.EOF when the source is
	// exhausted.
	Read(ctx context.Context) (model.RawRecord, error)
	// Count returns the total number of records when the source can compute
	// it cheaply, for progress accounting. The second return is false when
	// the count is unavailable.
	Count(ctx context.Context) (int, bool)
	// Close releases resources held by the source.
	Close() error
}

// drain is a helper shared by Count implementations that have no cheaper
// option than a full pass over a secondary handle.
func drain(ctx context.Context, src RecordSource) (int, bool) {
	if err := src.Open(ctx); err != nil {
		return 0, false
	}
	defer src.Close()

	n := 0
	for {
		_, err := src.Read(ctx)
		if err == io.EOF {
			return n, true
		}
		if err != nil {
			return 0, false
		}
		n++
	}
}
