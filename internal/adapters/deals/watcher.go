package deals

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// InboxWatcher watches an inbox directory for dropped deal files. A new
// <dealID>.json is moved into the deals directory and its ID emitted on
// Deals(), where the serve loop picks it up to start an analysis.
//
// Writes are debounced per file: editors and network copies produce a
// burst of write events before the file is complete.
type InboxWatcher struct {
	inbox    string
	dealsDir string
	log      *logging.Logger

	watcher *fsnotify.Watcher
	out     chan string
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

const settleDelay = 500 * time.Millisecond

// NewInboxWatcher creates and starts a watcher on the inbox directory.
func NewInboxWatcher(inbox, dealsDir string, log *logging.Logger) (*InboxWatcher, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if err := os.MkdirAll(inbox, 0o750); err != nil {
		return nil, core.ErrStorage("creating inbox directory").WithCause(err)
	}
	if err := os.MkdirAll(dealsDir, 0o750); err != nil {
		return nil, core.ErrStorage("creating deals directory").WithCause(err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.ErrStorage("creating inbox watcher").WithCause(err)
	}
	if err := fsw.Add(inbox); err != nil {
		_ = fsw.Close()
		return nil, core.ErrStorage("watching inbox directory").WithCause(err)
	}

	w := &InboxWatcher{
		inbox:    inbox,
		dealsDir: dealsDir,
		log:      log,
		watcher:  fsw,
		out:      make(chan string, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}
	go w.loop()

	// Files already sitting in the inbox are ingested on startup.
	w.sweep()
	return w, nil
}

// Deals emits the ID of each ingested deal.
func (w *InboxWatcher) Deals() <-chan string {
	return w.out
}

// Close stops the watcher. The Deals channel stays open but goes
// quiet; consumers select against their own shutdown signal.
func (w *InboxWatcher) Close() error {
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *InboxWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("inbox watcher error", "error", err.Error())
		}
	}
}

// schedule (re)arms the settle timer for a file; ingestion happens once
// events stop arriving for it.
func (w *InboxWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *InboxWatcher) sweep() {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		w.schedule(filepath.Join(w.inbox, entry.Name()))
	}
}

// ingest moves a settled inbox file into the deals directory and emits
// its deal ID.
func (w *InboxWatcher) ingest(path string) {
	dealID := strings.TrimSuffix(filepath.Base(path), ".json")
	target := filepath.Join(w.dealsDir, dealID+".json")

	if err := os.Rename(path, target); err != nil {
		w.log.Warn("inbox ingest failed", "deal_id", dealID, "error", err.Error())
		return
	}
	w.log.Info("deal ingested from inbox", "deal_id", dealID)

	select {
	case w.out <- dealID:
	case <-w.stop:
	}
}
