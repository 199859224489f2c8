package storage

import (
	"context"
	"errors"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"

	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// GCSStore stores artifacts in a Google Cloud Storage bucket under an
// optional object prefix.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCSStore for the given bucket. Credentials are
// resolved from the environment through application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, exception.Newf("storage", "GCS storage requires a bucket name")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, exception.New("storage", "failed to create GCS client", err, false, true)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads the object, overwriting any previous content.
func (s *GCSStore) Put(ctx context.Context, objectName string, data io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(s.objectPath(objectName)).NewWriter(ctx)
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return exception.New("storage", "failed to upload "+objectName, err, false, true)
	}
	if err := w.Close(); err != nil {
		return exception.New("storage", "failed to finalize upload of "+objectName, err, false, true)
	}
	return nil
}

// Exists reports whether the object is present in the bucket.
func (s *GCSStore) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.objectPath(objectName)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, exception.New("storage", "failed to stat "+objectName, err, false, true)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectPath(objectName string) string {
	if s.prefix == "" {
		return objectName
	}
	return path.Join(s.prefix, objectName)
}

// Verify interfaces
var _ Store = (*GCSStore)(nil)
