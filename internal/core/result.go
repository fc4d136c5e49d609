package core

import "time"

// AgentResult is the outcome of one agent attempt. It is immutable once
// returned by the runner; a later attempt for the same agent supersedes the
// previous value rather than mutating it.
type AgentResult struct {
	AgentName       string         `json:"agent_name"`
	Success         bool           `json:"success"`
	Data            map[string]any `json:"data,omitempty"`
	Error           string         `json:"error,omitempty"`
	CostUSD         float64        `json:"cost_usd"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Attempts        int            `json:"attempts"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewSuccessResult builds a successful result envelope.
func NewSuccessResult(agentName string, data map[string]any, costUSD float64, execution time.Duration, attempts int) *AgentResult {
	return &AgentResult{
		AgentName:       agentName,
		Success:         true,
		Data:            data,
		CostUSD:         costUSD,
		ExecutionTimeMs: execution.Milliseconds(),
		Attempts:        attempts,
		CreatedAt:       time.Now(),
	}
}

// NewFailureResult builds a failed result envelope. Cost can be positive:
// a failed attempt may still have consumed metered completions.
func NewFailureResult(agentName, errMsg string, costUSD float64, execution time.Duration, attempts int) *AgentResult {
	return &AgentResult{
		AgentName:       agentName,
		Success:         false,
		Error:           errMsg,
		CostUSD:         costUSD,
		ExecutionTimeMs: execution.Milliseconds(),
		Attempts:        attempts,
		CreatedAt:       time.Now(),
	}
}

// NewDependencyFailedResult synthesizes the zero-cost failure recorded when
// a hard dependency did not succeed and the agent is not invoked at all.
func NewDependencyFailedResult(agentName, dependency string) *AgentResult {
	return &AgentResult{
		AgentName: agentName,
		Success:   false,
		Error:     DependencyFailedMessage(dependency),
		CreatedAt: time.Now(),
	}
}

// DependencyFailedMessage formats the synthesized dependency-failure cause.
func DependencyFailedMessage(dependency string) string {
	return "dependency failed: " + dependency
}
