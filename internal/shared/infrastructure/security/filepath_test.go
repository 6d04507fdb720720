package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanConfigPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("relative paths become absolute", func(t *testing.T) {
		got, err := CleanConfigPath("catalog.yaml")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("dot segments are removed", func(t *testing.T) {
		got, err := CleanConfigPath(filepath.Join(dir, "a", "..", "catalog.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "catalog.yaml", filepath.Base(got))
		assert.NotContains(t, got, "..")
	})

	t.Run("symlinks resolve to their target", func(t *testing.T) {
		target := filepath.Join(dir, "real.yaml")
		require.NoError(t, os.WriteFile(target, []byte("plans: []"), 0o600))
		link := filepath.Join(dir, "link.yaml")
		require.NoError(t, os.Symlink(target, link))

		got, err := CleanConfigPath(link)
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(target)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	for _, bad := range []string{"", "  ", "cat.yaml; rm -rf /", "$(whoami).yaml", "a|b", "x`y`"} {
		_, err := CleanConfigPath(bad)
		assert.Error(t, err, "path %q", bad)
	}
}

func TestReadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1"), 0o600))

	data, err := ReadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: v1", string(data))

	_, err = ReadConfigFile(dir)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = ReadConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
