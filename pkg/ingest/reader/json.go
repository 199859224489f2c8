package reader

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// JSONReader reads raw records from a JSON file. Two layouts are accepted:
// a top-level array of objects, or newline-delimited objects (NDJSON). The
// layout is detected from the first non-whitespace token on Open.
type JSONReader struct {
	path    string
	file    *os.File
	decoder *json.Decoder
	inArray bool
}

// NewJSONReader creates a JSONReader for the given path.
func NewJSONReader(path string) *JSONReader {
	return &JSONReader{path: path}
}

// Open opens the file and detects the layout.
func (r *JSONReader) Open(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := os.Open(r.path)
	if err != nil {
		return exception.New("reader", "JSON file not found: "+r.path, err, false, false)
	}
	dec := json.NewDecoder(f)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		r.file = f
		r.decoder = nil
		return nil
	}
	if err != nil {
		f.Close()
		return exception.New("reader", "failed to parse JSON file", err, false, false)
	}

	switch d := tok.(type) {
	case json.Delim:
		switch d {
		case '[':
			r.inArray = true
		case '{':
			// NDJSON: re-open so the decoder sees whole objects.
			f.Close()
			f, err = os.Open(r.path)
			if err != nil {
				return exception.New("reader", "JSON file not found: "+r.path, err, false, false)
			}
			dec = json.NewDecoder(f)
			dec.UseNumber()
		default:
			f.Close()
			return exception.New("reader", "JSON file must contain an array of objects or newline-delimited objects", nil, false, false)
		}
	default:
		f.Close()
		return exception.New("reader", "JSON file must contain an array of objects or newline-delimited objects", nil, false, false)
	}

	r.file = f
	r.decoder = dec
	return nil
}

// Read returns the next object as a RawRecord, or io.EOF at end of input.
func (r *JSONReader) Read(ctx context.Context) (model.RawRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.decoder == nil {
		return nil, io.EOF
	}

	if r.inArray && !r.decoder.More() {
		return nil, io.EOF
	}

	var record model.RawRecord
	if err := r.decoder.Decode(&record); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, exception.New("reader", "failed to decode JSON record", err, true, false)
	}
	return record, nil
}

// Count counts records with a full pass over a fresh handle.
func (r *JSONReader) Count(ctx context.Context) (int, bool) {
	return drain(ctx, NewJSONReader(r.path))
}

// Close closes the underlying file.
func (r *JSONReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.decoder = nil
	return err
}

// Verify interfaces
var _ RecordSource = (*JSONReader)(nil)
