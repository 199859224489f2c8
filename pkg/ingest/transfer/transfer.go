// Package transfer provides processors that mirror file-backed media (images,
// annotations) into an artifact store while their metadata rows are ingested.
package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/retry"
	"github.com/tracebloc/ingestor/pkg/ingest/storage"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// FileProcessor copies the file referenced by a record's filename column
// from the source directory into the artifact store. Copy failures are
// retried; a missing source file is logged and the record passes through
// unchanged.
type FileProcessor struct {
	store  storage.Store
	policy retry.Policy

	// srcDir is the root of the source tree; subdir the folder holding the
	// files ("images", "annotations").
	srcDir string
	subdir string
	// extension is appended to filenames that carry none.
	extension string
	// ownsStore makes Cleanup close the store.
	ownsStore bool
}

// NewFileProcessor creates a FileProcessor.
func NewFileProcessor(store storage.Store, policy retry.Policy, srcDir, subdir, extension string, ownsStore bool) *FileProcessor {
	return &FileProcessor{
		store:     store,
		policy:    policy,
		srcDir:    srcDir,
		subdir:    subdir,
		extension: extension,
		ownsStore: ownsStore,
	}
}

// Process mirrors the record's file and normalizes the filename and
// extension fields.
func (p *FileProcessor) Process(ctx context.Context, record model.Record) (model.Record, error) {
	filename := record["filename"]
	if filename == "" {
		logger.Errorf("No filename found in record, skipping file transfer")
		return record, nil
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = p.extension
		filename += ext
	}

	srcPath := filepath.Join(p.srcDir, p.subdir, filename)
	if _, err := os.Stat(srcPath); err != nil {
		logger.Errorf("Source file not found: %s", srcPath)
		return record, nil
	}

	err := p.policy.Do(ctx, "copy "+filename, func(error) bool { return true }, func() error {
		f, err := os.Open(srcPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return p.store.Put(ctx, filename, f)
	})
	if err != nil {
		return nil, exception.New("transfer", fmt.Sprintf("failed to copy file '%s'", filename), err, true, false)
	}

	record["filename"] = strings.TrimSuffix(filename, ext)
	record["extension"] = ext
	logger.Debugf("Copied file '%s' into store", filename)
	return record, nil
}

// Cleanup closes the store when this processor owns it.
func (p *FileProcessor) Cleanup() error {
	if !p.ownsStore {
		return nil
	}
	return p.store.Close()
}
