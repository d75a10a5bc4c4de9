package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")
	store := New(path)

	require.NoError(t, store.Save(doc{Name: "main", Items: []string{"a", "b"}}))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var got doc
	require.NoError(t, store.Load(&got))
	assert.Equal(t, doc{Name: "main", Items: []string{"a", "b"}}, got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	broken := filepath.Join(dir, "broken.yml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [\n"), 0o600))

	var out doc
	assert.ErrorIs(t, New(filepath.Join(dir, "missing.yml")).Load(&out), os.ErrNotExist)
	assert.ErrorIs(t, New(empty).Load(&out), ErrEmptyFile)
	assert.Error(t, New(broken).Load(&out))
	assert.Error(t, New(empty).Load(nil))
}
