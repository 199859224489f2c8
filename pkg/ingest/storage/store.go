// Package storage provides the artifact stores used to mirror source files
// (images, annotations, raw blobs) next to the ingested table, either on the
// local file system or in a GCS bucket.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// Store is the artifact store contract.
type Store interface {
	// Put writes the object under the given name, overwriting any previous
	// content.
	Put(ctx context.Context, objectName string, data io.Reader) error
	// Exists reports whether the named object is present.
	Exists(ctx context.Context, objectName string) (bool, error)
	// Close releases any underlying client resources.
	Close() error
}

// ForConfig builds the Store matching the configured storage type.
func ForConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg.BaseDir)
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.DestPath)
	default:
		return nil, exception.Newf("storage", "unsupported storage type: %s", cfg.Type)
	}
}
