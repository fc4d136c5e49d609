package events

// Event type constants for analysis lifecycle events.
const (
	TypeAnalysisStarted   = "analysis_started"
	TypeAnalysisResumed   = "analysis_resumed"
	TypeAnalysisCompleted = "analysis_completed"
	TypeAnalysisFailed    = "analysis_failed"
	TypeStageStarted      = "stage_started"
	TypeStageCompleted    = "stage_completed"
	TypeCheckpointSaved   = "checkpoint_saved"
)

// AnalysisStartedEvent marks the beginning of an analysis run.
type AnalysisStartedEvent struct {
	BaseEvent
	Mode        string `json:"mode"`
	TotalAgents int    `json:"total_agents"`
	Tiers       []int  `json:"tiers"`
}

// NewAnalysisStarted creates an analysis started event.
func NewAnalysisStarted(analysisID, dealID, mode string, tiers []int, totalAgents int) AnalysisStartedEvent {
	return AnalysisStartedEvent{
		BaseEvent:   NewBaseEvent(TypeAnalysisStarted, analysisID, dealID),
		Mode:        mode,
		TotalAgents: totalAgents,
		Tiers:       tiers,
	}
}

// AnalysisResumedEvent marks the beginning of a resume run. Skipped
// counts agents carried over from the checkpoint without re-running.
type AnalysisResumedEvent struct {
	BaseEvent
	Skipped int `json:"skipped"`
	Retried int `json:"retried"`
}

// NewAnalysisResumed creates an analysis resumed event.
func NewAnalysisResumed(analysisID, dealID string, skipped, retried int) AnalysisResumedEvent {
	return AnalysisResumedEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisResumed, analysisID, dealID),
		Skipped:   skipped,
		Retried:   retried,
	}
}

// AnalysisCompletedEvent marks a run that finished with every agent done.
type AnalysisCompletedEvent struct {
	BaseEvent
	CompletedAgents int     `json:"completed_agents"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	DurationMs      int64   `json:"duration_ms"`
}

// NewAnalysisCompleted creates an analysis completed event.
func NewAnalysisCompleted(analysisID, dealID string, completed int, costUSD float64, durationMs int64) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		BaseEvent:       NewBaseEvent(TypeAnalysisCompleted, analysisID, dealID),
		CompletedAgents: completed,
		TotalCostUSD:    costUSD,
		DurationMs:      durationMs,
	}
}

// AnalysisFailedEvent marks a run that ended with agents still owed.
type AnalysisFailedEvent struct {
	BaseEvent
	Error        string  `json:"error"`
	FailedAgents int     `json:"failed_agents"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// NewAnalysisFailed creates an analysis failed event.
func NewAnalysisFailed(analysisID, dealID, errMsg string, failedAgents int, costUSD float64) AnalysisFailedEvent {
	return AnalysisFailedEvent{
		BaseEvent:    NewBaseEvent(TypeAnalysisFailed, analysisID, dealID),
		Error:        errMsg,
		FailedAgents: failedAgents,
		TotalCostUSD: costUSD,
	}
}

// StageEvent marks a stage boundary in the pipeline.
type StageEvent struct {
	BaseEvent
	Stage  int      `json:"stage"`
	Agents []string `json:"agents"`
}

// NewStageStarted creates a stage started event.
func NewStageStarted(analysisID, dealID string, stage int, agents []string) StageEvent {
	return StageEvent{
		BaseEvent: NewBaseEvent(TypeStageStarted, analysisID, dealID),
		Stage:     stage,
		Agents:    agents,
	}
}

// NewStageCompleted creates a stage completed event.
func NewStageCompleted(analysisID, dealID string, stage int, agents []string) StageEvent {
	return StageEvent{
		BaseEvent: NewBaseEvent(TypeStageCompleted, analysisID, dealID),
		Stage:     stage,
		Agents:    agents,
	}
}

// CheckpointSavedEvent marks a checkpoint append after a stage barrier.
type CheckpointSavedEvent struct {
	BaseEvent
	CheckpointID    string `json:"checkpoint_id"`
	CompletedAgents int    `json:"completed_agents"`
	FailedAgents    int    `json:"failed_agents"`
}

// NewCheckpointSaved creates a checkpoint saved event.
func NewCheckpointSaved(analysisID, dealID, checkpointID string, completed, failed int) CheckpointSavedEvent {
	return CheckpointSavedEvent{
		BaseEvent:       NewBaseEvent(TypeCheckpointSaved, analysisID, dealID),
		CheckpointID:    checkpointID,
		CompletedAgents: completed,
		FailedAgents:    failed,
	}
}
