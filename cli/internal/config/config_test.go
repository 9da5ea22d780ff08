package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/storage"
)

func TestInitAt_WritesDefaults(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()

	require.NoError(t, InitAt(dir))

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	c := Get()
	assert.Equal(t, DefaultServerURL, c.Server.URL)
	assert.Equal(t, 60*time.Second, c.Server.Timeout)
	assert.Equal(t, storage.BackendFile, c.Storage.Backend)
	assert.Equal(t, "127.0.0.1:8765", c.Bridge.Addr)
	assert.True(t, c.UI.Color)
	assert.Equal(t, filepath.Join(dir, "klu-agent.log"), LogPath())

	opts := StorageOptions()
	assert.Equal(t, storage.BackendFile, opts.Backend)
	assert.Equal(t, filepath.Join(dir, "state.yaml"), opts.Path)
}

func TestInitAt_ReadsExistingFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	content := "server:\n  url: http://campus:9000/api\nstorage:\n  backend: sqlite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	require.NoError(t, InitAt(dir))

	assert.Equal(t, "http://campus:9000/api", GetServerURL())
	opts := StorageOptions()
	assert.Equal(t, storage.BackendSQLite, opts.Backend)
	assert.Equal(t, filepath.Join(dir, "state.db"), opts.Path)
}

func TestEnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("KLU_SERVER_URL", "http://env:8000/api")

	require.NoError(t, InitAt(t.TempDir()))

	assert.Equal(t, "http://env:8000/api", GetServerURL())
}

func TestSaveServerURL(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	require.NoError(t, InitAt(dir))

	require.NoError(t, SaveServerURL("http://other:8000/api/"))
	assert.Equal(t, "http://other:8000/api", GetServerURL())

	viper.Reset()
	require.NoError(t, InitAt(dir))
	assert.Equal(t, "http://other:8000/api", GetServerURL())
}
