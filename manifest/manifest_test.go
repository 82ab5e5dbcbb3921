package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_runtime.json")

	m := New("kinect-xr-go", "/opt/kinect-xr-go/lib/libkinect_xr.so")
	require.Nil(t, Write(path, m))

	t.Setenv(EnvOverride, path)
	loaded, err := Load()
	require.Nil(t, err)
	assert.Equal(t, m, loaded)
}

func TestResolvePathFallsBackToDefault(t *testing.T) {
	t.Setenv(EnvOverride, "")
	assert.Equal(t, DefaultPath, ResolvePath())
}

func TestResolvePathHonorsOverride(t *testing.T) {
	t.Setenv(EnvOverride, "/custom/path.json")
	assert.Equal(t, "/custom/path.json", ResolvePath())
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_runtime.json")
	require.Nil(t, os.WriteFile(path, []byte(`{"file_format_version":"2.0.0","runtime":{"name":"x","library_path":"/y"}}`), 0o644))

	t.Setenv(EnvOverride, path)
	_, err := Load()
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "unsupported file_format_version")
}

func TestLoadRejectsMissingRuntimeFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_runtime.json")
	require.Nil(t, os.WriteFile(path, []byte(`{"file_format_version":"1.0.0","runtime":{"name":"","library_path":""}}`), 0o644))

	t.Setenv(EnvOverride, path)
	_, err := Load()
	require.NotNil(t, err)
}
