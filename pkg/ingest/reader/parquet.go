package reader

import (
	"context"
	"encoding/json"
	"io"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// parquetReadBatch is the number of rows pulled from the file per ReadByNumber
// call. Rows are buffered and handed out one at a time.
const parquetReadBatch = 64

// ParquetReader reads raw records from a Parquet file. The schema is taken
// from the file footer; each row is surfaced as a RawRecord keyed by column
// name. Rows are decoded through a JSON round-trip so the engine sees plain
// maps regardless of the file's physical types.
type ParquetReader struct {
	path      string
	file      source.ParquetFile
	pr        *reader.ParquetReader
	remaining int64
	buffer    []model.RawRecord
}

// NewParquetReader creates a ParquetReader for the given path.
func NewParquetReader(path string) *ParquetReader {
	return &ParquetReader{path: path}
}

// Open opens the file and reads the footer.
func (r *ParquetReader) Open(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := local.NewLocalFileReader(r.path)
	if err != nil {
		return exception.New("reader", "Parquet file not found: "+r.path, err, false, false)
	}
	pr, err := reader.NewParquetReader(f, nil, 1)
	if err != nil {
		f.Close()
		return exception.New("reader", "failed to read Parquet footer", err, false, false)
	}

	r.file = f
	r.pr = pr
	r.remaining = pr.GetNumRows()
	r.buffer = nil
	return nil
}

// Read returns the next row as a RawRecord, or io.EOF at end of file.
func (r *ParquetReader) Read(ctx context.Context) (model.RawRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.pr == nil {
		return nil, io.EOF
	}

	if len(r.buffer) == 0 {
		if r.remaining <= 0 {
			return nil, io.EOF
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
		if len(r.buffer) == 0 {
			return nil, io.EOF
		}
	}

	record := r.buffer[0]
	r.buffer = r.buffer[1:]
	return record, nil
}

// fill pulls the next chunk of rows into the buffer.
func (r *ParquetReader) fill() error {
	n := int64(parquetReadBatch)
	if r.remaining < n {
		n = r.remaining
	}
	rows, err := r.pr.ReadByNumber(int(n))
	if err != nil {
		return exception.New("reader", "failed to read Parquet rows", err, true, false)
	}
	r.remaining -= int64(len(rows))

	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return exception.New("reader", "failed to decode Parquet row", err, true, false)
		}
		record := make(model.RawRecord)
		if err := json.Unmarshal(raw, &record); err != nil {
			return exception.New("reader", "failed to decode Parquet row", err, true, false)
		}
		r.buffer = append(r.buffer, record)
	}
	return nil
}

// Count returns the row count from the file footer.
func (r *ParquetReader) Count(ctx context.Context) (int, bool) {
	if r.pr != nil {
		return int(r.pr.GetNumRows()), true
	}
	clone := NewParquetReader(r.path)
	if err := clone.Open(ctx); err != nil {
		return 0, false
	}
	defer clone.Close()
	return int(clone.pr.GetNumRows()), true
}

// Close releases the reader and the underlying file.
func (r *ParquetReader) Close() error {
	if r.pr != nil {
		r.pr.ReadStop()
		r.pr = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Verify interfaces
var _ RecordSource = (*ParquetReader)(nil)
