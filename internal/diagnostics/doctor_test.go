package diagnostics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacha-rebbouh/angeldesk/internal/config"
)

func checkByName(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q", name)
	return Check{}
}

func TestRunChecksHealthyEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "analyses.db")},
		Deals: config.DealsConfig{Dir: dir},
		LLM: config.LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			APIKey:   "sk-test",
		},
	}

	checks := RunChecks(context.Background(), cfg)
	require.Len(t, checks, 3)
	assert.Equal(t, StatusOK, checkByName(t, checks, "store").Status)
	assert.Equal(t, StatusOK, checkByName(t, checks, "deals").Status)
	assert.Equal(t, StatusOK, checkByName(t, checks, "llm").Status)
}

func TestRunChecksFlagsProblems(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: "cassandra"},
		Deals: config.DealsConfig{Dir: filepath.Join(t.TempDir(), "missing")},
		LLM:   config.LLMConfig{Endpoint: "https://api.openai.com/v1/chat/completions", Model: "gpt-4o-mini"},
	}

	checks := RunChecks(context.Background(), cfg)
	assert.Equal(t, StatusFail, checkByName(t, checks, "store").Status)
	assert.Equal(t, StatusWarn, checkByName(t, checks, "deals").Status)
	// Missing API key is a warning, not a failure: local endpoints may
	// not need one.
	assert.Equal(t, StatusWarn, checkByName(t, checks, "llm").Status)
}

func TestCollectSnapshot(t *testing.T) {
	s := CollectSnapshot(context.Background())
	assert.NotEmpty(t, s.GoVersion)
	assert.NotEmpty(t, s.OS)
	assert.Positive(t, s.CPUCores)
	assert.GreaterOrEqual(t, s.MemTotalMB, s.MemUsedMB)
}
