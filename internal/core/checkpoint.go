package core

import "time"

// FailedAgent pairs an agent name with its failure cause inside a checkpoint.
type FailedAgent struct {
	AgentName string `json:"agent_name"`
	Error     string `json:"error"`
}

// AnalysisCheckpoint is an append-only progress snapshot. Checkpoints are
// never mutated or deleted; the latest one by creation time is the
// authoritative resume point, and the full history is the audit trail.
type AnalysisCheckpoint struct {
	ID              string                  `json:"id"`
	AnalysisID      AnalysisID              `json:"analysis_id"`
	CompletedAgents []string                `json:"completed_agents"`
	FailedAgents    []FailedAgent           `json:"failed_agents"`
	Results         map[string]*AgentResult `json:"results"`
	CreatedAt       time.Time               `json:"created_at"`
}

// SnapshotCheckpoint captures the analysis's current progress as a new
// checkpoint. Results are referenced, not copied: AgentResult values are
// immutable once recorded.
func SnapshotCheckpoint(id string, a *Analysis) *AnalysisCheckpoint {
	results := make(map[string]*AgentResult, len(a.Results))
	for name, r := range a.Results {
		results[name] = r
	}
	return &AnalysisCheckpoint{
		ID:              id,
		AnalysisID:      a.ID,
		CompletedAgents: a.SuccessfulAgents(),
		FailedAgents:    a.FailedEntries(),
		Results:         results,
		CreatedAt:       time.Now(),
	}
}
