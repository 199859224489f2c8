package reader

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/configbinder"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// CSVReaderOptions are the CSV-specific source options, bound from the loose
// property map in the source configuration.
type CSVReaderOptions struct {
	// Delimiter is the field separator; defaults to ",".
	Delimiter string `yaml:"delimiter"`
	// LazyQuotes permits non-standard quoting in the input.
	LazyQuotes bool `yaml:"lazy_quotes"`
}

// CSVReader reads raw records from a CSV file. The first row is the header;
// header names are trimmed, and each subsequent row becomes one RawRecord
// keyed by header name.
type CSVReader struct {
	path    string
	opts    CSVReaderOptions
	file    *os.File
	reader  *csv.Reader
	headers []string
}

// NewCSVReader creates a CSVReader for the given path with options bound from
// props.
func NewCSVReader(path string, props map[string]string) (*CSVReader, error) {
	opts := CSVReaderOptions{}
	if err := configbinder.BindProperties(props, &opts); err != nil {
		return nil, exception.New("reader", "failed to bind CSV reader options", err, false, false)
	}
	return &CSVReader{path: path, opts: opts}, nil
}

// Open opens the file and consumes the header row.
func (r *CSVReader) Open(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := os.Open(r.path)
	if err != nil {
		return exception.New("reader", "CSV file not found: "+r.path, err, false, false)
	}
	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = r.opts.LazyQuotes
	cr.FieldsPerRecord = -1
	if r.opts.Delimiter != "" {
		cr.Comma = rune(r.opts.Delimiter[0])
	}

	headers, err := cr.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			logger.Warnf("Empty CSV file: %s", r.path)
			r.file = f
			r.reader = nil
			return nil
		}
		return exception.New("reader", "failed to read CSV header", err, false, false)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	r.file = f
	r.reader = cr
	r.headers = headers
	return nil
}

// Read returns the next row as a RawRecord, or io.EOF at end of file.
func (r *CSVReader) Read(ctx context.Context) (model.RawRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.reader == nil {
		return nil, io.EOF
	}

	row, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, exception.New("reader", "failed to read CSV row", err, true, false)
	}

	record := make(model.RawRecord, len(r.headers))
	for i, header := range r.headers {
		if i < len(row) {
			record[header] = row[i]
		} else {
			record[header] = ""
		}
	}
	return record, nil
}

// Count counts data rows with a second pass over a fresh handle.
func (r *CSVReader) Count(ctx context.Context) (int, bool) {
	clone, err := NewCSVReader(r.path, nil)
	if err != nil {
		return 0, false
	}
	clone.opts = r.opts
	return drain(ctx, clone)
}

// Close closes the underlying file.
func (r *CSVReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.reader = nil
	return err
}

// Verify interfaces
var _ RecordSource = (*CSVReader)(nil)
