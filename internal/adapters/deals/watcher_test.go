package deals

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForDeal(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingested deal")
		return ""
	}
}

func TestInboxWatcherIngestsDroppedFile(t *testing.T) {
	inbox := t.TempDir()
	dealsDir := t.TempDir()

	w, err := NewInboxWatcher(inbox, dealsDir, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "acme-seed.json"), []byte(`{"deal": {"name": "Acme"}}`), 0o644))

	id := waitForDeal(t, w.Deals())
	assert.Equal(t, "acme-seed", id)

	// The file moved from the inbox into the deals directory.
	_, err = os.Stat(filepath.Join(dealsDir, "acme-seed.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(inbox, "acme-seed.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestInboxWatcherSweepsExistingFiles(t *testing.T) {
	inbox := t.TempDir()
	dealsDir := t.TempDir()

	// A file already waiting before the watcher starts.
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "waiting.json"), []byte(`{}`), 0o644))

	w, err := NewInboxWatcher(inbox, dealsDir, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "waiting", waitForDeal(t, w.Deals()))
}

func TestInboxWatcherIgnoresNonJSON(t *testing.T) {
	inbox := t.TempDir()
	dealsDir := t.TempDir()

	w, err := NewInboxWatcher(inbox, dealsDir, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(inbox, "readme.txt"), []byte("hi"), 0o644))

	select {
	case id := <-w.Deals():
		t.Fatalf("unexpected ingestion of %q", id)
	case <-time.After(2 * settleDelay):
	}
}
