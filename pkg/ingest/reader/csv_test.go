package reader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVReader_ReadsRowsKeyedByHeader(t *testing.T) {
	path := writeFile(t, "pets.csv", "name, species ,age\nrex,dog,4\nwhiskers,cat,2\n")

	r, err := NewCSVReader(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	first, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rex", first["name"])
	assert.Equal(t, "dog", first["species"])
	assert.Equal(t, "4", first["age"])

	second, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "whiskers", second["name"])

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCSVReader_CustomDelimiter(t *testing.T) {
	path := writeFile(t, "pets.csv", "name;age\nrex;4\n")

	r, err := NewCSVReader(path, map[string]string{"delimiter": ";"})
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	record, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rex", record["name"])
	assert.Equal(t, "4", record["age"])
}

func TestCSVReader_ShortRowPadsMissingCells(t *testing.T) {
	path := writeFile(t, "pets.csv", "name,age\nrex\n")

	r, err := NewCSVReader(path, map[string]string{"lazy_quotes": "true"})
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	record, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rex", record["name"])
	assert.Equal(t, "", record["age"])
}

func TestCSVReader_EmptyFileYieldsEOF(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	r, err := NewCSVReader(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCSVReader_MissingFile(t *testing.T) {
	r, err := NewCSVReader(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.NoError(t, err)

	err = r.Open(context.Background())
	assert.Error(t, err)
}

func TestCSVReader_Count(t *testing.T) {
	path := writeFile(t, "pets.csv", "name,age\nrex,4\nwhiskers,2\nbuddy,7\n")

	r, err := NewCSVReader(path, nil)
	require.NoError(t, err)

	n, ok := r.Count(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, n)
}
