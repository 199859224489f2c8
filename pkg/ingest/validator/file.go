package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTypeValidator verifies that every file under a directory carries the
// expected extension. It is used for file-backed media sources (images,
// annotation files, raw text) where extension uniformity is a precondition
// for downstream processing.
type FileTypeValidator struct {
	// AllowedExtension is the required extension, including the dot (".jpg").
	AllowedExtension string
	// Subdir is the directory under the source path to inspect; empty means
	// the source path itself.
	Subdir string
}

// NewFileTypeValidator creates a FileTypeValidator for one extension and
// optional subdirectory.
func NewFileTypeValidator(allowedExtension, subdir string) *FileTypeValidator {
	return &FileTypeValidator{AllowedExtension: strings.ToLower(allowedExtension), Subdir: subdir}
}

func (v *FileTypeValidator) Name() string {
	return fmt.Sprintf("file_type(%s)", v.AllowedExtension)
}

func (v *FileTypeValidator) Validate(ctx context.Context, desc Descriptor) Result {
	dir := desc.Path
	if v.Subdir != "" {
		dir = filepath.Join(desc.Path, v.Subdir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return NewResult([]string{fmt.Sprintf("directory %q is not accessible: %v", dir, err)}, nil, nil)
	}
	if !info.IsDir() {
		return NewResult([]string{fmt.Sprintf("%q is not a directory", dir)}, nil, nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return NewResult([]string{fmt.Sprintf("failed to list %q: %v", dir, err)}, nil, nil)
	}

	var errs []string
	var warnings []string
	checked := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("validation cancelled: %v", err))
			break
		}
		if entry.IsDir() {
			continue
		}
		checked++
		if ext := strings.ToLower(filepath.Ext(entry.Name())); ext != v.AllowedExtension {
			errs = append(errs, fmt.Sprintf("file %q has extension %q, expected %q", entry.Name(), ext, v.AllowedExtension))
		}
	}
	if checked == 0 {
		warnings = append(warnings, fmt.Sprintf("directory %q contains no files", dir))
	}

	return NewResult(errs, warnings, map[string]any{"files_checked": checked})
}

// PairedFileValidator verifies referential completeness between two
// directories of paired artifacts: every file in the primary directory must
// have a counterpart with the same base name (and the paired extension) in
// the pair directory. Object detection uses it to require an annotation file
// per image.
type PairedFileValidator struct {
	// PrimarySubdir holds the primary artifacts (e.g. "images").
	PrimarySubdir string
	// PairSubdir holds the paired artifacts (e.g. "annotations").
	PairSubdir string
	// PairExtension is the required extension of the paired artifact (".xml").
	PairExtension string
}

// NewPairedFileValidator creates a PairedFileValidator.
func NewPairedFileValidator(primarySubdir, pairSubdir, pairExtension string) *PairedFileValidator {
	return &PairedFileValidator{
		PrimarySubdir: primarySubdir,
		PairSubdir:    pairSubdir,
		PairExtension: strings.ToLower(pairExtension),
	}
}

func (v *PairedFileValidator) Name() string {
	return fmt.Sprintf("paired_files(%s->%s)", v.PrimarySubdir, v.PairSubdir)
}

func (v *PairedFileValidator) Validate(ctx context.Context, desc Descriptor) Result {
	primaryDir := filepath.Join(desc.Path, v.PrimarySubdir)
	pairDir := filepath.Join(desc.Path, v.PairSubdir)

	entries, err := os.ReadDir(primaryDir)
	if err != nil {
		return NewResult([]string{fmt.Sprintf("primary directory %q is not accessible: %v", primaryDir, err)}, nil, nil)
	}
	if _, err := os.Stat(pairDir); err != nil {
		return NewResult([]string{fmt.Sprintf("pair directory %q is not accessible: %v", pairDir, err)}, nil, nil)
	}

	var errs []string
	missing := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		pairPath := filepath.Join(pairDir, base+v.PairExtension)
		if _, err := os.Stat(pairPath); err != nil {
			missing++
			errs = append(errs, fmt.Sprintf("no %s counterpart for %q", v.PairExtension, entry.Name()))
		}
	}

	return NewResult(errs, nil, map[string]any{"missing_pairs": missing})
}

// Verify interfaces
var (
	_ Validator = (*FileTypeValidator)(nil)
	_ Validator = (*PairedFileValidator)(nil)
)
