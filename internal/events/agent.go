package events

// Event type constants for per-agent events.
const (
	TypeAgentStarted   = "agent_started"
	TypeAgentRetrying  = "agent_retrying"
	TypeAgentCompleted = "agent_completed"
	TypeAgentFailed    = "agent_failed"
	TypeAgentSkipped   = "agent_skipped"
)

// AgentEvent represents a state change of a single agent attempt.
type AgentEvent struct {
	BaseEvent
	Agent      string  `json:"agent"`
	Attempt    int     `json:"attempt,omitempty"`
	Score      int     `json:"score,omitempty"`
	CostUSD    float64 `json:"cost_usd,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewAgentStarted creates an agent started event. Attempt numbers are
// carried by retry events only; the start of an agent's slot is a
// single event regardless of how many attempts follow.
func NewAgentStarted(analysisID, dealID, agent string) AgentEvent {
	return AgentEvent{
		BaseEvent: NewBaseEvent(TypeAgentStarted, analysisID, dealID),
		Agent:     agent,
	}
}

// NewAgentRetrying creates an event for an attempt that failed with
// budget left for another.
func NewAgentRetrying(analysisID, dealID, agent string, attempt int, errMsg string) AgentEvent {
	return AgentEvent{
		BaseEvent: NewBaseEvent(TypeAgentRetrying, analysisID, dealID),
		Agent:     agent,
		Attempt:   attempt,
		Error:     errMsg,
	}
}

// NewAgentCompleted creates an agent completed event.
func NewAgentCompleted(analysisID, dealID, agent string, score int, costUSD float64, durationMs int64) AgentEvent {
	return AgentEvent{
		BaseEvent:  NewBaseEvent(TypeAgentCompleted, analysisID, dealID),
		Agent:      agent,
		Score:      score,
		CostUSD:    costUSD,
		DurationMs: durationMs,
	}
}

// NewAgentFailed creates an agent failed event for an exhausted attempt
// budget or a synthesized dependency failure.
func NewAgentFailed(analysisID, dealID, agent, errMsg string, costUSD float64) AgentEvent {
	return AgentEvent{
		BaseEvent: NewBaseEvent(TypeAgentFailed, analysisID, dealID),
		Agent:     agent,
		Error:     errMsg,
		CostUSD:   costUSD,
	}
}

// NewAgentSkipped creates an event for an agent carried over from a
// checkpoint during resume.
func NewAgentSkipped(analysisID, dealID, agent string) AgentEvent {
	return AgentEvent{
		BaseEvent: NewBaseEvent(TypeAgentSkipped, analysisID, dealID),
		Agent:     agent,
	}
}
