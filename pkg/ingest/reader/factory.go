package reader

import (
	"strings"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// ForSource builds the RecordSource matching the configured source format.
func ForSource(cfg config.SourceConfig) (RecordSource, error) {
	switch strings.ToLower(cfg.Format) {
	case "csv":
		return NewCSVReader(cfg.Path, cfg.Options)
	case "json":
		return NewJSONReader(cfg.Path), nil
	case "parquet":
		return NewParquetReader(cfg.Path), nil
	default:
		return nil, exception.Newf("reader", "unsupported source format: %s", cfg.Format)
	}
}
