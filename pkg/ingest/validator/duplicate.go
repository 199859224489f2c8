package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// TableExistenceChecker reports whether a destination table already exists.
// The persistence layer implements it.
type TableExistenceChecker interface {
	HasTable(ctx context.Context, name string) (bool, error)
}

// DuplicateValidator reports re-ingestion into an existing destination: it
// fails when the destination table already exists, and when a destination
// media directory is configured, when that directory exists. It is meant as
// an explicit pre-flight check before the engine creates its table; the
// ingest run itself upserts into an existing table, so the chain the engine
// runs does not include it.
type DuplicateValidator struct {
	checker TableExistenceChecker
}

// NewDuplicateValidator creates a DuplicateValidator. checker may be nil, in
// which case the table check is skipped with a warning (local testing).
func NewDuplicateValidator(checker TableExistenceChecker) *DuplicateValidator {
	return &DuplicateValidator{checker: checker}
}

func (v *DuplicateValidator) Name() string {
	return "duplicate"
}

func (v *DuplicateValidator) Validate(ctx context.Context, desc Descriptor) Result {
	var errs []string
	var warnings []string

	if v.checker == nil {
		warnings = append(warnings, "database check skipped: no table checker configured")
	} else {
		exists, err := v.checker.HasTable(ctx, desc.TableName)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("could not check table existence: %v", err))
		case exists:
			errs = append(errs, fmt.Sprintf("table %q already exists in the database", desc.TableName))
		}
	}

	if desc.DestPath != "" {
		if _, err := os.Stat(desc.DestPath); err == nil {
			errs = append(errs, fmt.Sprintf("destination directory %q already exists", desc.DestPath))
		} else if parent := filepath.Dir(desc.DestPath); parent != "." {
			if _, err := os.Stat(parent); os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("parent directory %q does not exist and will be created", parent))
			}
		}
	}

	return NewResult(errs, warnings, nil)
}

// Verify interfaces
var _ Validator = (*DuplicateValidator)(nil)
