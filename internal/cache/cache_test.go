package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("campaign-draft-d1", []byte(`{"title":"a"}`)))

	got, ok := c.Get("campaign-draft-d1")
	require.True(t, ok)
	assert.Equal(t, `{"title":"a"}`, string(got))
}

func TestFileCacheOverwrite(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("k", []byte("old")))
	require.NoError(t, c.Set("k", []byte("new")))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(got))
}

func TestFileCacheMiss(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestFileCacheRemove(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("k", []byte("v")))
	require.NoError(t, c.Remove("k"))

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Removing a missing key is not an error.
	assert.NoError(t, c.Remove("k"))
}

func TestFileCacheCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	c, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte("v")))

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestFileCacheSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	// Path separators in a key must not escape the cache directory.
	require.NoError(t, c.Set("../escape/attempt", []byte("v")))

	got, ok := c.Get("../escape/attempt")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "entry stays inside the cache directory")
}

func TestFileCacheNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.Set("k", []byte("v")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
