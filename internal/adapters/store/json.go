package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// JSONStore implements core.AnalysisStore with one JSON file per analysis
// under a directory. Writes go through an atomic rename so a crash never
// leaves a half-written record.
//
// The claim guard is an in-process mutex: the JSON backend is for
// single-process use only. Multi-process deployments need the SQLite
// backend, whose guard lives in the database itself.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// analysisEnvelope is the on-disk shape: the analysis record plus its
// append-only checkpoint history.
type analysisEnvelope struct {
	Version     int                        `json:"version"`
	Analysis    *core.Analysis             `json:"analysis"`
	Checkpoints []*core.AnalysisCheckpoint `json:"checkpoints,omitempty"`
}

// NewJSONStore creates a JSON file store rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, core.ErrStorage("creating store directory").WithCause(err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) path(id core.AnalysisID) string {
	return filepath.Join(s.dir, string(id)+".json")
}

func (s *JSONStore) read(id core.AnalysisID) (*analysisEnvelope, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound("analysis", string(id))
	}
	if err != nil {
		return nil, core.ErrStorage("reading analysis file").WithCause(err)
	}
	var env analysisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, core.ErrStorage("decoding analysis file").WithCause(err)
	}
	return &env, nil
}

func (s *JSONStore) write(env *analysisEnvelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return core.ErrStorage("encoding analysis file").WithCause(err)
	}
	if err := atomicWriteFile(s.path(env.Analysis.ID), data, 0o644); err != nil {
		return core.ErrStorage("writing analysis file").WithCause(err)
	}
	return nil
}

// CreateAnalysis inserts a new analysis record.
func (s *JSONStore) CreateAnalysis(_ context.Context, a *core.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(a.ID)); err == nil {
		return core.ErrConflict(fmt.Sprintf("analysis %s already exists", a.ID))
	}
	return s.write(&analysisEnvelope{Version: 1, Analysis: a})
}

// GetAnalysis loads an analysis by ID.
func (s *JSONStore) GetAnalysis(_ context.Context, id core.AnalysisID) (*core.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(id)
	if err != nil {
		return nil, err
	}
	return env.Analysis, nil
}

// SaveAnalysis replaces the stored analysis, preserving its checkpoint
// history.
func (s *JSONStore) SaveAnalysis(_ context.Context, a *core.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(a.ID)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	env.Analysis = a
	return s.write(env)
}

// ClaimRunning transitions pending or failed to running under the store
// mutex. Any other prior status rejects the claim.
func (s *JSONStore) ClaimRunning(_ context.Context, id core.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(id)
	if err != nil {
		return err
	}
	status := env.Analysis.Status
	if status != core.AnalysisStatusPending && status != core.AnalysisStatusFailed {
		return core.ErrConflict(fmt.Sprintf("analysis %s is %s, not claimable", id, status))
	}
	env.Analysis.Status = core.AnalysisStatusRunning
	env.Analysis.UpdatedAt = time.Now()
	return s.write(env)
}

// ListAnalyses scans the store directory and returns summaries ordered by
// most recently updated.
func (s *JSONStore) ListAnalyses(_ context.Context) ([]core.AnalysisSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, core.ErrStorage("reading store directory").WithCause(err)
	}

	var summaries []core.AnalysisSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := core.AnalysisID(strings.TrimSuffix(entry.Name(), ".json"))
		env, err := s.read(id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, env.Analysis.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// AppendCheckpoint appends a checkpoint to the analysis's history.
func (s *JSONStore) AppendCheckpoint(_ context.Context, cp *core.AnalysisCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(cp.AnalysisID)
	if err != nil {
		return err
	}
	env.Checkpoints = append(env.Checkpoints, cp)
	return s.write(env)
}

// LatestCheckpoint returns the most recently appended checkpoint, or nil
// when none exists.
func (s *JSONStore) LatestCheckpoint(_ context.Context, id core.AnalysisID) (*core.AnalysisCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if len(env.Checkpoints) == 0 {
		return nil, nil
	}
	return env.Checkpoints[len(env.Checkpoints)-1], nil
}

// ListCheckpoints returns every checkpoint in append order.
func (s *JSONStore) ListCheckpoints(_ context.Context, id core.AnalysisID) ([]*core.AnalysisCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(id)
	if err != nil {
		return nil, err
	}
	return env.Checkpoints, nil
}

var _ core.AnalysisStore = (*JSONStore)(nil)
