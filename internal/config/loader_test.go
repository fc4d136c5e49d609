package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, ".angeldesk/analyses.db", cfg.Store.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.AgentTimeout)
	assert.Equal(t, 2, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 1, cfg.Pipeline.ResumeAttempts)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Events.BufferSize)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: debug
store:
  backend: json
  path: /tmp/analyses.json
pipeline:
  max_attempts: 3
llm:
  model: gpt-4o
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Store.Backend)
	assert.Equal(t, "/tmp/analyses.json", cfg.Store.Path)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	// Untouched keys keep defaults.
	assert.Equal(t, 1, cfg.Pipeline.ResumeAttempts)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("ANGELDESK_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestEnvAPIKey(t *testing.T) {
	t.Setenv("ANGELDESK_LLM_API_KEY", "sk-test-key-abc")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key-abc", cfg.LLM.APIKey)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigFile(path).Load()
	assert.Error(t, err)
}
