package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FunkyDruid/contextrie/internal/source"
)

func TestWriteReadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", SourcesFile)
	in := []source.Source{
		source.NewDocument("a", "A", "doc", []string{"k"}, "text"),
		source.NewList("b", "B", "list", nil, []string{"x", "y"}),
	}

	require.NoError(t, WriteSources(path, in))
	out, err := ReadSources(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[1].Content, out[1].Content)
}

func TestReadSources_RejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), SourcesFile)
	dup := source.NewDocument("a", "", "", nil, "x")
	require.NoError(t, WriteSources(path, []source.Source{dup, dup}))

	_, err := ReadSources(path)
	assert.ErrorContains(t, err, "duplicate id")
}

func TestReadSources_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadSources(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadSources(bad)
	assert.Error(t, err)
}

func TestWriteSources_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), SourcesFile)
	require.NoError(t, WriteSources(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
