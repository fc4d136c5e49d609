package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "auto"},
		Store: StoreConfig{Backend: "sqlite", Path: "analyses.db"},
		LLM: LLMConfig{
			Endpoint:  "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o-mini",
			MaxTokens: 4096,
			Timeout:   90 * time.Second,
		},
		Pipeline: PipelineConfig{
			AgentTimeout:   2 * time.Minute,
			MaxAttempts:    2,
			ResumeAttempts: 1,
		},
		Server: ServerConfig{Addr: ":8080"},
		Events: EventsConfig{BufferSize: 100},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(validConfig()))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	cfg.Store.Backend = "postgres"
	cfg.Pipeline.MaxAttempts = 0

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 3)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "pipeline.max_attempts")
}

func TestValidateStore(t *testing.T) {
	cfg := validConfig()
	cfg.Store = StoreConfig{Backend: "json", Path: ""}
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")

	cfg = validConfig()
	cfg.Store = StoreConfig{Backend: "memory"}
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidateLLM(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Endpoint = "ftp://files.example.com"
	cfg.LLM.MaxTokens = -1
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "llm.endpoint"))
	assert.True(t, strings.Contains(err.Error(), "llm.max_tokens"))
}

func TestValidateResumeAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.ResumeAttempts = 0
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.resume_attempts")
}
