// Package store provides the persistence backends for analyses and their
// append-only checkpoints: SQLite for durable multi-process use, a JSON
// file store for zero-dependency setups, and an in-memory store for tests.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// MemoryStore is an in-memory AnalysisStore. It enforces the same claim
// and append-only semantics as the durable backends, which makes it a
// faithful stand-in for pipeline tests.
type MemoryStore struct {
	mu          sync.RWMutex
	analyses    map[core.AnalysisID]*core.Analysis
	checkpoints map[core.AnalysisID][]*core.AnalysisCheckpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses:    make(map[core.AnalysisID]*core.Analysis),
		checkpoints: make(map[core.AnalysisID][]*core.AnalysisCheckpoint),
	}
}

// CreateAnalysis inserts a new analysis record.
func (s *MemoryStore) CreateAnalysis(_ context.Context, a *core.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[a.ID]; ok {
		return core.ErrConflict(fmt.Sprintf("analysis %s already exists", a.ID))
	}
	a.UpdatedAt = time.Now()
	clone, err := cloneAnalysis(a)
	if err != nil {
		return err
	}
	s.analyses[a.ID] = clone
	return nil
}

// GetAnalysis returns a copy of the stored analysis.
func (s *MemoryStore) GetAnalysis(_ context.Context, id core.AnalysisID) (*core.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, core.ErrNotFound("analysis", string(id))
	}
	return cloneAnalysis(a)
}

// SaveAnalysis replaces the stored analysis record.
func (s *MemoryStore) SaveAnalysis(_ context.Context, a *core.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[a.ID]; !ok {
		return core.ErrNotFound("analysis", string(a.ID))
	}
	a.UpdatedAt = time.Now()
	clone, err := cloneAnalysis(a)
	if err != nil {
		return err
	}
	s.analyses[a.ID] = clone
	return nil
}

// ClaimRunning atomically transitions pending or failed to running. Any
// other prior status rejects the claim, which is what keeps two processes
// from double-running the same analysis.
func (s *MemoryStore) ClaimRunning(_ context.Context, id core.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[id]
	if !ok {
		return core.ErrNotFound("analysis", string(id))
	}
	if a.Status != core.AnalysisStatusPending && a.Status != core.AnalysisStatusFailed {
		return core.ErrConflict(fmt.Sprintf("analysis %s is %s, not claimable", id, a.Status))
	}
	a.Status = core.AnalysisStatusRunning
	a.UpdatedAt = time.Now()
	return nil
}

// ListAnalyses returns summaries ordered by most recently updated.
func (s *MemoryStore) ListAnalyses(_ context.Context) ([]core.AnalysisSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]core.AnalysisSummary, 0, len(s.analyses))
	for _, a := range s.analyses {
		summaries = append(summaries, a.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// AppendCheckpoint records a new checkpoint. There is no update or delete.
func (s *MemoryStore) AppendCheckpoint(_ context.Context, cp *core.AnalysisCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[cp.AnalysisID]; !ok {
		return core.ErrNotFound("analysis", string(cp.AnalysisID))
	}
	clone, err := cloneCheckpoint(cp)
	if err != nil {
		return err
	}
	s.checkpoints[cp.AnalysisID] = append(s.checkpoints[cp.AnalysisID], clone)
	return nil
}

// LatestCheckpoint returns the most recently appended checkpoint, or nil
// when none exists.
func (s *MemoryStore) LatestCheckpoint(_ context.Context, id core.AnalysisID) (*core.AnalysisCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cps := s.checkpoints[id]
	if len(cps) == 0 {
		return nil, nil
	}
	return cloneCheckpoint(cps[len(cps)-1])
}

// ListCheckpoints returns every checkpoint in append order.
func (s *MemoryStore) ListCheckpoints(_ context.Context, id core.AnalysisID) ([]*core.AnalysisCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cps := s.checkpoints[id]
	out := make([]*core.AnalysisCheckpoint, 0, len(cps))
	for _, cp := range cps {
		clone, err := cloneCheckpoint(cp)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

// cloneAnalysis deep-copies through JSON so callers cannot mutate stored
// records behind the store's back.
func cloneAnalysis(a *core.Analysis) (*core.Analysis, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, core.ErrStorage("encoding analysis").WithCause(err)
	}
	var clone core.Analysis
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, core.ErrStorage("decoding analysis").WithCause(err)
	}
	return &clone, nil
}

func cloneCheckpoint(cp *core.AnalysisCheckpoint) (*core.AnalysisCheckpoint, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, core.ErrStorage("encoding checkpoint").WithCause(err)
	}
	var clone core.AnalysisCheckpoint
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, core.ErrStorage("decoding checkpoint").WithCause(err)
	}
	return &clone, nil
}

var _ core.AnalysisStore = (*MemoryStore)(nil)
