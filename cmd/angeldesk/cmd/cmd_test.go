package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"analyze", "resume", "status", "serve", "doctor", "deals", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "command %q not registered", name)
	}
}

func TestAnalyzeRequiresDealID(t *testing.T) {
	err := analyzeCmd.Args(analyzeCmd, nil)
	require.Error(t, err)

	err = analyzeCmd.Args(analyzeCmd, []string{"deal-1"})
	assert.NoError(t, err)
}

func TestStatusAcceptsAtMostOneArg(t *testing.T) {
	assert.NoError(t, statusCmd.Args(statusCmd, nil))
	assert.NoError(t, statusCmd.Args(statusCmd, []string{"an-1"}))
	assert.Error(t, statusCmd.Args(statusCmd, []string{"an-1", "an-2"}))
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "1.2.3", appVersion)
	assert.Equal(t, "abc123", appCommit)
	assert.Equal(t, "2026-01-01", appDate)
}
