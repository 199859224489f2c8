package reader

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReader_ArrayLayout(t *testing.T) {
	path := writeFile(t, "pets.json", `[{"name":"rex","age":4},{"name":"whiskers","age":2}]`)

	r := NewJSONReader(path)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	first, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rex", first["name"])
	assert.Equal(t, json.Number("4"), first["age"])

	second, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "whiskers", second["name"])

	_, err = r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestJSONReader_NDJSONLayout(t *testing.T) {
	path := writeFile(t, "pets.jsonl", "{\"name\":\"rex\"}\n{\"name\":\"whiskers\"}\n{\"name\":\"buddy\"}\n")

	r := NewJSONReader(path)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	var names []string
	for {
		record, err := r.Read(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, record["name"].(string))
	}
	assert.Equal(t, []string{"rex", "whiskers", "buddy"}, names)
}

func TestJSONReader_EmptyFileYieldsEOF(t *testing.T) {
	path := writeFile(t, "empty.json", "")

	r := NewJSONReader(path)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	_, err := r.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestJSONReader_RejectsScalarTopLevel(t *testing.T) {
	path := writeFile(t, "bad.json", `"just a string"`)

	r := NewJSONReader(path)
	err := r.Open(context.Background())
	assert.Error(t, err)
}

func TestJSONReader_Count(t *testing.T) {
	path := writeFile(t, "pets.json", `[{"name":"rex"},{"name":"whiskers"}]`)

	r := NewJSONReader(path)
	n, ok := r.Count(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, n)
}
