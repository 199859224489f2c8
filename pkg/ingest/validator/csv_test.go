package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVStructureValidator_WellFormedPasses(t *testing.T) {
	path := writeCSV(t, "name,age\nrex,4\nwhiskers,2\n")

	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Metadata["rows"])
	assert.Equal(t, 2, res.Metadata["columns"])
}

func TestCSVStructureValidator_InconsistentWidthFails(t *testing.T) {
	path := writeCSV(t, "name,age\nrex,4\nwhiskers,2,extra\n")

	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
}

func TestCSVStructureValidator_BlankHeaderColumnFails(t *testing.T) {
	path := writeCSV(t, "name,,age\nrex,x,4\n")

	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "blank")
}

func TestCSVStructureValidator_EmptyFileWarns(t *testing.T) {
	path := writeCSV(t, "")

	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
}

func TestCSVStructureValidator_HeaderOnlyWarns(t *testing.T) {
	path := writeCSV(t, "name,age\n")

	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no data rows")
}

func TestCSVStructureValidator_MissingFileFails(t *testing.T) {
	v := NewCSVStructureValidator()
	res := v.Validate(context.Background(), Descriptor{Path: filepath.Join(t.TempDir(), "nope.csv")})
	assert.False(t, res.Valid)
}

func TestDataTypeValidator_CompliantValuesPass(t *testing.T) {
	path := writeCSV(t, "age,weight,adopted,seen_at,name\n4,12.5,true,2024-01-02,rex\n7,30.1,0,2023-12-31,buddy\n")

	v := NewDataTypeValidator()
	res := v.Validate(context.Background(), Descriptor{
		Path: path,
		Schema: model.Schema{
			"age":     "INT",
			"weight":  "FLOAT",
			"adopted": "BOOLEAN",
			"seen_at": "DATE",
			"name":    "VARCHAR(10)",
		},
	})
	assert.True(t, res.Valid)
}

func TestDataTypeValidator_ViolationsCountedPerColumn(t *testing.T) {
	path := writeCSV(t, "age,name\nfour,rex\nfive,a pet with a very long name\n")

	v := NewDataTypeValidator()
	res := v.Validate(context.Background(), Descriptor{
		Path:   path,
		Schema: model.Schema{"age": "INT", "name": "VARCHAR(10)"},
	})
	require.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
	joined := res.Errors[0] + res.Errors[1]
	assert.Contains(t, joined, "age")
	assert.Contains(t, joined, "name")
	assert.Contains(t, joined, "2 value(s)")
}

func TestDataTypeValidator_EmptyValuesTolerated(t *testing.T) {
	path := writeCSV(t, "age\n\n4\n")

	v := NewDataTypeValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path, Schema: model.Schema{"age": "INT"}})
	assert.True(t, res.Valid)
}

func TestDataTypeValidator_AbsentSchemaColumnWarns(t *testing.T) {
	path := writeCSV(t, "name\nrex\n")

	v := NewDataTypeValidator()
	res := v.Validate(context.Background(), Descriptor{Path: path, Schema: model.Schema{"age": "INT"}})
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "age")
}

func TestVarcharLength(t *testing.T) {
	n, ok := varcharLength("VARCHAR(255)")
	require.True(t, ok)
	assert.Equal(t, 255, n)

	_, ok = varcharLength("VARCHAR")
	assert.False(t, ok)

	_, ok = varcharLength("VARCHAR()")
	assert.False(t, ok)
}
