package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

type stubValidator struct {
	name   string
	result Result
	calls  int
}

func (s *stubValidator) Name() string { return s.name }

func (s *stubValidator) Validate(ctx context.Context, desc Descriptor) Result {
	s.calls++
	return s.result
}

type stubChecker struct {
	exists bool
	err    error
}

func (s *stubChecker) HasTable(ctx context.Context, name string) (bool, error) {
	return s.exists, s.err
}

func TestChain_RunsAllValidatorsWithoutShortCircuit(t *testing.T) {
	first := &stubValidator{name: "first", result: NewResult([]string{"broken"}, nil, nil)}
	second := &stubValidator{name: "second", result: NewResult(nil, []string{"heads up"}, map[string]any{"rows": 3})}

	chain := NewChain(first, second)
	res := chain.Run(context.Background(), Descriptor{})

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "first: broken", res.Errors[0])
	assert.Equal(t, []string{"heads up"}, res.Warnings)
	assert.Equal(t, 3, res.Metadata["rows"])
}

func TestChain_AllPass(t *testing.T) {
	chain := NewChain(
		&stubValidator{name: "a", result: NewResult(nil, nil, nil)},
		&stubValidator{name: "b", result: NewResult(nil, nil, nil)},
	)
	res := chain.Run(context.Background(), Descriptor{})
	assert.True(t, res.Valid)
	assert.NoError(t, res.AggregateError())
}

func TestResult_AggregateErrorCarriesEveryMessage(t *testing.T) {
	res := NewResult([]string{"one", "two"}, nil, nil)
	err := res.AggregateError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
}

func TestTableNameValidator(t *testing.T) {
	v := NewTableNameValidator()

	cases := []struct {
		name      string
		tableName string
		valid     bool
	}{
		{"simple", "pets", true},
		{"underscored", "_pets_2024", true},
		{"empty", "", false},
		{"leading digit", "1pets", false},
		{"hyphen", "my-pets", false},
		{"spaces", "my pets", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := v.Validate(context.Background(), Descriptor{TableName: tc.tableName})
			assert.Equal(t, tc.valid, res.Valid)
		})
	}
}

func TestTableNameValidator_ReservedKeywordWarns(t *testing.T) {
	v := NewTableNameValidator()
	res := v.Validate(context.Background(), Descriptor{TableName: "user"})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "reserved")
}

func TestDuplicateValidator_ExistingTableFails(t *testing.T) {
	v := NewDuplicateValidator(&stubChecker{exists: true})
	res := v.Validate(context.Background(), Descriptor{TableName: "pets"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "already exists")
}

func TestDuplicateValidator_MissingTablePasses(t *testing.T) {
	v := NewDuplicateValidator(&stubChecker{exists: false})
	res := v.Validate(context.Background(), Descriptor{TableName: "pets"})
	assert.True(t, res.Valid)
}

func TestDuplicateValidator_CheckErrorWarnsOnly(t *testing.T) {
	v := NewDuplicateValidator(&stubChecker{err: errors.New("connection refused")})
	res := v.Validate(context.Background(), Descriptor{TableName: "pets"})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
}

func TestDuplicateValidator_ExistingDestPathFails(t *testing.T) {
	v := NewDuplicateValidator(nil)
	res := v.Validate(context.Background(), Descriptor{TableName: "pets", DestPath: t.TempDir()})
	assert.False(t, res.Valid)
}

func TestForCategory(t *testing.T) {
	names := func(vs []Validator) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name()
		}
		return out
	}

	t.Run("tabular", func(t *testing.T) {
		vs, err := ForCategory(model.TabularClassification, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"table_name", "csv_structure", "data_type"}, names(vs))
	})

	t.Run("image classification", func(t *testing.T) {
		vs, err := ForCategory(model.ImageClassification, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"table_name", "file_type(.jpg)"}, names(vs))
	})

	t.Run("object detection", func(t *testing.T) {
		vs, err := ForCategory(model.ObjectDetection, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"table_name",
			"file_type(.jpg)", "file_type(.xml)",
			"paired_files(images->annotations)",
		}, names(vs))
	})

	t.Run("time series with time column", func(t *testing.T) {
		vs, err := ForCategory(model.TimeSeriesForecasting, map[string]string{"time_column": "ts"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"table_name", "csv_structure", "data_type",
			"time_format", "time_before_today", "time_series",
		}, names(vs))
	})

	t.Run("time series without time column", func(t *testing.T) {
		vs, err := ForCategory(model.TimeSeriesForecasting, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"table_name", "csv_structure", "data_type"}, names(vs))
	})

	// Re-ingestion upserts, so an existing destination table must not be
	// rejected by the chain the engine runs.
	t.Run("no duplicate check in any chain", func(t *testing.T) {
		for _, category := range []model.TaskCategory{
			model.ImageClassification, model.ObjectDetection,
			model.TextClassification, model.KeypointDetection,
			model.TabularClassification, model.TabularRegression,
			model.TimeSeriesForecasting,
		} {
			vs, err := ForCategory(category, nil)
			require.NoError(t, err)
			assert.NotContains(t, names(vs), "duplicate", "category %s", category)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := ForCategory(model.TaskCategory("quantum_sorting"), nil)
		assert.Error(t, err)
	})
}

func TestOptionsFromProps_Defaults(t *testing.T) {
	opts, err := OptionsFromProps(nil)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", opts.Extension)
	assert.Equal(t, "images", opts.ImagesSubdir)
	assert.Equal(t, "annotations", opts.AnnotationsSubdir)
	assert.Equal(t, ".xml", opts.AnnotationExtension)
}

func TestOptionsFromProps_Overrides(t *testing.T) {
	opts, err := OptionsFromProps(map[string]string{"extension": ".png", "time_column": "ts"})
	require.NoError(t, err)
	assert.Equal(t, ".png", opts.Extension)
	assert.Equal(t, "ts", opts.TimeColumn)
}
