package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/retry"
	"github.com/tracebloc/ingestor/pkg/ingest/storage"
)

func testPolicy() retry.Policy {
	return retry.NewPolicy(config.RetryConfig{
		MaxAttempts:     2,
		InitialInterval: 1,
		MaxInterval:     5,
		Factor:          2.0,
	})
}

func newTestSetup(t *testing.T) (srcDir string, store *storage.LocalStore) {
	t.Helper()
	srcDir = t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(srcDir, "images"), 0o755))

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return srcDir, store
}

func TestFileProcessor_CopiesFileAndSplitsExtension(t *testing.T) {
	srcDir, store := newTestSetup(t)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "images", "rex.jpg"), []byte("img"), 0o644))

	p := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", false)
	record, err := p.Process(context.Background(), model.Record{"filename": "rex.jpg"})
	require.NoError(t, err)

	assert.Equal(t, "rex", record["filename"])
	assert.Equal(t, ".jpg", record["extension"])

	exists, err := store.Exists(context.Background(), "rex.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileProcessor_AppendsDefaultExtension(t *testing.T) {
	srcDir, store := newTestSetup(t)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "images", "rex.jpg"), []byte("img"), 0o644))

	p := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", false)
	record, err := p.Process(context.Background(), model.Record{"filename": "rex"})
	require.NoError(t, err)

	assert.Equal(t, "rex", record["filename"])
	assert.Equal(t, ".jpg", record["extension"])
}

func TestFileProcessor_MissingFilenamePassesThrough(t *testing.T) {
	srcDir, store := newTestSetup(t)

	p := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", false)
	record, err := p.Process(context.Background(), model.Record{"label": "dog"})
	require.NoError(t, err)
	assert.Equal(t, "dog", record["label"])
	assert.NotContains(t, record, "extension")
}

func TestFileProcessor_MissingSourceFilePassesThrough(t *testing.T) {
	srcDir, store := newTestSetup(t)

	p := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", false)
	record, err := p.Process(context.Background(), model.Record{"filename": "ghost.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "ghost.jpg", record["filename"])
}

func TestFileProcessor_CleanupClosesOwnedStore(t *testing.T) {
	srcDir, store := newTestSetup(t)

	owned := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", true)
	assert.NoError(t, owned.Cleanup())

	shared := NewFileProcessor(store, testPolicy(), srcDir, "images", ".jpg", false)
	assert.NoError(t, shared.Cleanup())
}
