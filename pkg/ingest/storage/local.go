package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// LocalStore stores artifacts under a base directory on the local file
// system.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir, creating the
// directory when missing.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, exception.Newf("storage", "local storage requires a base directory")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, exception.New("storage", "failed to create base directory "+baseDir, err, false, false)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes the object to baseDir/objectName, creating intermediate
// directories as needed.
func (s *LocalStore) Put(ctx context.Context, objectName string, data io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.New("storage", "failed to create directory for "+objectName, err, false, false)
	}

	f, err := os.Create(path)
	if err != nil {
		return exception.New("storage", "failed to create "+objectName, err, false, false)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return exception.New("storage", "failed to write "+objectName, err, false, false)
	}
	return f.Close()
}

// Exists reports whether baseDir/objectName is present.
func (s *LocalStore) Exists(ctx context.Context, objectName string) (bool, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Close is a no-op for local storage.
func (s *LocalStore) Close() error {
	return nil
}

// Verify interfaces
var _ Store = (*LocalStore)(nil)
