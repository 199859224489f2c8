package validator

import (
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/configbinder"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
)

// CategoryOptions are the per-category validator options, bound from a loose
// string property map.
type CategoryOptions struct {
	// Extension is the required media file extension (image/text categories).
	Extension string `yaml:"extension"`
	// ImagesSubdir is the subdirectory holding media files.
	ImagesSubdir string `yaml:"images_subdir"`
	// AnnotationsSubdir is the subdirectory holding annotation files.
	AnnotationsSubdir string `yaml:"annotations_subdir"`
	// AnnotationExtension is the annotation file extension (object detection).
	AnnotationExtension string `yaml:"annotation_extension"`
	// TimeColumn is the time column name (time-series forecasting).
	TimeColumn string `yaml:"time_column"`
	// TimeLayout is the Go time layout of the time column.
	TimeLayout string `yaml:"time_layout"`
}

// applyDefaults fills the option fields the original layout conventions imply.
func (o *CategoryOptions) applyDefaults() {
	if o.Extension == "" {
		o.Extension = ".jpg"
	}
	if o.ImagesSubdir == "" {
		o.ImagesSubdir = "images"
	}
	if o.AnnotationsSubdir == "" {
		o.AnnotationsSubdir = "annotations"
	}
	if o.AnnotationExtension == "" {
		o.AnnotationExtension = ".xml"
	}
}

// OptionsFromProps binds a loose property map into CategoryOptions with the
// layout-convention defaults applied.
func OptionsFromProps(props map[string]string) (*CategoryOptions, error) {
	opts := &CategoryOptions{}
	if err := configbinder.BindProperties(props, opts); err != nil {
		return nil, exception.New("validator", "failed to bind validator options", err, false, false)
	}
	opts.applyDefaults()
	return opts, nil
}

// ForCategory resolves the ordered validator list for a task category.
// The mapping is a pure function of (category, options); it performs no I/O.
// Every category carries the naming-convention check; tabular and time-series
// categories add structural and declared-type checks over the source file,
// file-backed categories add extension and pairing checks.
//
// DuplicateValidator is deliberately absent: the engine creates its table
// before ingesting and re-ingestion into an existing table is an upsert, so
// an existing table is not an error inside a run. It remains available for
// explicit pre-flight checks against tables the caller did not create.
func ForCategory(category model.TaskCategory, props map[string]string) ([]Validator, error) {
	if !category.IsValid() {
		return nil, exception.Newf("validator", "unknown task category: %s", category)
	}

	opts, err := OptionsFromProps(props)
	if err != nil {
		return nil, err
	}

	base := []Validator{
		NewTableNameValidator(),
	}

	switch category {
	case model.ImageClassification, model.KeypointDetection:
		return append(base,
			NewFileTypeValidator(opts.Extension, opts.ImagesSubdir),
		), nil

	case model.ObjectDetection:
		return append(base,
			NewFileTypeValidator(opts.Extension, opts.ImagesSubdir),
			NewFileTypeValidator(opts.AnnotationExtension, opts.AnnotationsSubdir),
			NewPairedFileValidator(opts.ImagesSubdir, opts.AnnotationsSubdir, opts.AnnotationExtension),
		), nil

	case model.TextClassification:
		return append(base,
			NewFileTypeValidator(opts.Extension, opts.ImagesSubdir),
		), nil

	case model.TabularClassification, model.TabularRegression:
		return append(base,
			NewCSVStructureValidator(),
			NewDataTypeValidator(),
		), nil

	case model.TimeSeriesForecasting:
		validators := append(base,
			NewCSVStructureValidator(),
			NewDataTypeValidator(),
		)
		if opts.TimeColumn != "" {
			validators = append(validators,
				NewTimeFormatValidator(opts.TimeColumn, opts.TimeLayout),
				NewTimeBeforeTodayValidator(opts.TimeColumn, opts.TimeLayout),
				NewTimeSeriesValidator(opts.TimeColumn, opts.TimeLayout),
			)
		}
		return validators, nil

	default:
		return base, nil
	}
}
