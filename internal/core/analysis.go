package core

import (
	"fmt"
	"time"
)

// AnalysisID uniquely identifies an analysis run.
type AnalysisID string

// AnalysisStatus represents the current state of an analysis.
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusRunning   AnalysisStatus = "running"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// IsTerminal returns true for the two terminal states. A failed analysis
// may still be re-claimed by the resume controller.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// Analysis represents one due-diligence run against one deal.
type Analysis struct {
	ID              AnalysisID              `json:"id"`
	DealID          string                  `json:"deal_id"`
	Mode            string                  `json:"mode"`
	Tiers           []int                   `json:"tiers"`
	Status          AnalysisStatus          `json:"status"`
	TotalAgents     int                     `json:"total_agents"`
	CompletedAgents int                     `json:"completed_agents"`
	TotalCostUSD    float64                 `json:"total_cost_usd"`
	Results         map[string]*AgentResult `json:"results"`
	Error           string                  `json:"error,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// NewAnalysis creates a pending analysis for a deal.
func NewAnalysis(id AnalysisID, dealID, mode string, tiers []int) *Analysis {
	return &Analysis{
		ID:        id,
		DealID:    dealID,
		Mode:      mode,
		Tiers:     tiers,
		Status:    AnalysisStatusPending,
		Results:   make(map[string]*AgentResult),
		CreatedAt: time.Now(),
	}
}

// MergeResult records an attempt outcome. An existing successful result for
// the same agent is never overwritten; a later attempt supersedes anything
// else.
func (a *Analysis) MergeResult(r *AgentResult) {
	if r == nil {
		return
	}
	if a.Results == nil {
		a.Results = make(map[string]*AgentResult)
	}
	if prev, ok := a.Results[r.AgentName]; ok && prev.Success {
		return
	}
	a.Results[r.AgentName] = r
}

// Recompute refreshes CompletedAgents from the results map. TotalCostUSD is
// deliberately not derived here: cost increments are applied once per
// attempt by the caller and must never be recomputed from scratch.
func (a *Analysis) Recompute() {
	n := 0
	for _, r := range a.Results {
		if r.Success {
			n++
		}
	}
	a.CompletedAgents = n
}

// AddCost applies a non-negative cost increment.
func (a *Analysis) AddCost(usd float64) {
	if usd > 0 {
		a.TotalCostUSD += usd
	}
}

// SuccessfulAgents returns the names of agents with a successful result.
func (a *Analysis) SuccessfulAgents() []string {
	names := make([]string, 0, len(a.Results))
	for name, r := range a.Results {
		if r.Success {
			names = append(names, name)
		}
	}
	return names
}

// FailedEntries returns name/error pairs for every failed result.
func (a *Analysis) FailedEntries() []FailedAgent {
	failed := make([]FailedAgent, 0)
	for name, r := range a.Results {
		if !r.Success {
			failed = append(failed, FailedAgent{AgentName: name, Error: r.Error})
		}
	}
	return failed
}

// MarkRunning transitions to running. The atomic guard against concurrent
// claimants lives in the store (ClaimRunning); this only keeps the in-memory
// copy consistent.
func (a *Analysis) MarkRunning() {
	a.Status = AnalysisStatusRunning
	if a.StartedAt == nil {
		now := time.Now()
		a.StartedAt = &now
	}
	a.Error = ""
}

// MarkCompleted transitions to the completed terminal state.
func (a *Analysis) MarkCompleted() error {
	if a.Status != AnalysisStatusRunning {
		return fmt.Errorf("cannot complete analysis in %s state", a.Status)
	}
	a.Status = AnalysisStatusCompleted
	now := time.Now()
	a.CompletedAt = &now
	return nil
}

// MarkFailed transitions to the failed terminal state, recording the cause.
func (a *Analysis) MarkFailed(cause string) {
	a.Status = AnalysisStatusFailed
	a.Error = cause
	now := time.Now()
	a.CompletedAt = &now
}

// AnalysisSummary is a lightweight listing shape.
type AnalysisSummary struct {
	ID              AnalysisID     `json:"id"`
	DealID          string         `json:"deal_id"`
	Mode            string         `json:"mode"`
	Status          AnalysisStatus `json:"status"`
	TotalAgents     int            `json:"total_agents"`
	CompletedAgents int            `json:"completed_agents"`
	TotalCostUSD    float64        `json:"total_cost_usd"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Summary projects the analysis into its listing shape.
func (a *Analysis) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:              a.ID,
		DealID:          a.DealID,
		Mode:            a.Mode,
		Status:          a.Status,
		TotalAgents:     a.TotalAgents,
		CompletedAgents: a.CompletedAgents,
		TotalCostUSD:    a.TotalCostUSD,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
