// Package agents defines the analysis agent contract and the built-in
// agent catalogue. An agent is one independent analysis task producing
// a scored verdict from deal context; agents are plain values behind a
// single capability interface, registered by name.
package agents

import (
	"context"
	"sync"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// Tiers group agents by execution phase.
const (
	TierInvestigation = 1 // broad parallel investigation
	TierSector        = 2 // sector-specific deep dive, exactly one per deal
	TierSynthesis     = 3 // cross-agent synthesis
)

// Dependency names another agent whose output this agent reads. Hard
// dependencies block execution: when a hard dependency fails, the
// dependent agent is not invoked and gets a synthesized failure.
type Dependency struct {
	Name string
	Hard bool
}

// Agent is the capability interface every analysis agent implements.
type Agent interface {
	Name() string
	Tier() int
	Dependencies() []Dependency
	Run(ctx context.Context, rc *RunContext) (map[string]any, error)
}

// RunContext carries everything an agent reads during a run: the deal,
// the read-only results of earlier stages, and a metered completion
// client. One RunContext is created per agent execution; its cost
// meter accumulates across retry attempts.
type RunContext struct {
	Deal  core.DealContext
	Prior map[string]*core.AgentResult
	Log   *logging.Logger

	client    core.CompletionClient
	maxTokens int

	mu      sync.Mutex
	costUSD float64
}

// NewRunContext creates a run context for one agent execution.
func NewRunContext(deal core.DealContext, prior map[string]*core.AgentResult, client core.CompletionClient, maxTokens int, log *logging.Logger) *RunContext {
	if log == nil {
		log = logging.NewNop()
	}
	return &RunContext{
		Deal:      deal,
		Prior:     prior,
		Log:       log,
		client:    client,
		maxTokens: maxTokens,
	}
}

// Complete calls the completion service and meters its cost into the
// context. Cost is recorded even when the call returns an error, since
// a failed attempt may still have consumed paid tokens.
func (rc *RunContext) Complete(ctx context.Context, system, prompt string) (string, error) {
	completion, err := rc.client.Complete(ctx, core.CompletionRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: rc.maxTokens,
	})
	if completion != nil {
		rc.addCost(completion.CostUSD)
	}
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

func (rc *RunContext) addCost(usd float64) {
	if usd <= 0 {
		return
	}
	rc.mu.Lock()
	rc.costUSD += usd
	rc.mu.Unlock()
}

// CostUSD returns the spend metered so far across all attempts.
func (rc *RunContext) CostUSD() float64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.costUSD
}

// PriorData returns the payload of a successfully completed dependency,
// or nil if the dependency is absent or failed.
func (rc *RunContext) PriorData(agentName string) map[string]any {
	res, ok := rc.Prior[agentName]
	if !ok || !res.Success {
		return nil
	}
	return res.Data
}
