package core

import (
	"context"
	"time"
)

// CompletionRequest is one metered call into the text-completion service.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completion is the raw, untyped response. Output is free text that may
// contain malformed or partial JSON; callers must guard it before use.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Duration  time.Duration
}

// CompletionClient is the external text-completion collaborator.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// AnalysisStore is the relational store for Analysis records.
//
// ClaimRunning must atomically verify the prior status was pending or failed
// before transitioning to running; a rejected claim returns a conflict error.
// This is the guard against two processes double-running the same analysis.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, a *Analysis) error
	GetAnalysis(ctx context.Context, id AnalysisID) (*Analysis, error)
	SaveAnalysis(ctx context.Context, a *Analysis) error
	ClaimRunning(ctx context.Context, id AnalysisID) error
	ListAnalyses(ctx context.Context) ([]AnalysisSummary, error)

	CheckpointStore
}

// CheckpointStore persists append-only progress snapshots. There is no
// update or delete: history is immutable by design, which is what makes
// resume auditable.
type CheckpointStore interface {
	AppendCheckpoint(ctx context.Context, cp *AnalysisCheckpoint) error
	LatestCheckpoint(ctx context.Context, id AnalysisID) (*AnalysisCheckpoint, error)
	ListCheckpoints(ctx context.Context, id AnalysisID) ([]*AnalysisCheckpoint, error)
}

// DealProvider returns the full read-only context for a deal: metadata,
// document corpus, previously extracted facts and external benchmark data.
type DealProvider interface {
	DealContext(ctx context.Context, dealID string) (*DealContext, error)
}
