package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "1.0.0", cfg.Server.Version)
	assert.Equal(t, "qwen-turbo", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 10, cfg.AI.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, 720*time.Hour, cfg.Janitor.MaxIdle)
	assert.Equal(t, "@hourly", cfg.Janitor.Schedule)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.True(t, cfg.Knowledge.Enabled)
	assert.True(t, cfg.Knowledge.Seed)
	assert.Equal(t, 3, cfg.Knowledge.MaxResults)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `server:
  port: 9000
  mode: release
ai:
  model: qwen-plus
janitor:
  max_idle: 48h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MYSQL_HOST", "db.internal")
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "qwen-plus", cfg.AI.Model)
	assert.Equal(t, 48*time.Hour, cfg.Janitor.MaxIdle)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}
