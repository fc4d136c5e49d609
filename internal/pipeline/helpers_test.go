package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// fakeAgent is a scriptable agent for pipeline tests.
type fakeAgent struct {
	name  string
	tier  int
	deps  []agents.Dependency
	runs  atomic.Int64
	runFn func(ctx context.Context, rc *agents.RunContext) (map[string]any, error)
}

func (f *fakeAgent) Name() string                     { return f.name }
func (f *fakeAgent) Tier() int                        { return f.tier }
func (f *fakeAgent) Dependencies() []agents.Dependency { return f.deps }

func (f *fakeAgent) Run(ctx context.Context, rc *agents.RunContext) (map[string]any, error) {
	f.runs.Add(1)
	return f.runFn(ctx, rc)
}

// scoring pays one metered completion and returns a fixed verdict.
func scoring(score float64) func(ctx context.Context, rc *agents.RunContext) (map[string]any, error) {
	return func(ctx context.Context, rc *agents.RunContext) (map[string]any, error) {
		if _, err := rc.Complete(ctx, "system", "prompt"); err != nil {
			return nil, err
		}
		return map[string]any{"score": score}, nil
	}
}

// failingThenScoring fails (after paying for a completion) until n
// invocations have happened, then succeeds.
func failingThenScoring(n int64, score float64) func(ctx context.Context, rc *agents.RunContext) (map[string]any, error) {
	var calls atomic.Int64
	return func(ctx context.Context, rc *agents.RunContext) (map[string]any, error) {
		if _, err := rc.Complete(ctx, "system", "prompt"); err != nil {
			return nil, err
		}
		if calls.Add(1) <= n {
			return nil, core.ErrExecution(core.CodeCompletionMalformed, "no decodable verdict")
		}
		return map[string]any{"score": score}, nil
	}
}

// stubClient bills a fixed cost per completion call.
type stubClient struct {
	costPerCall float64
	calls       atomic.Int64
}

func (c *stubClient) Complete(_ context.Context, _ core.CompletionRequest) (*core.Completion, error) {
	c.calls.Add(1)
	return &core.Completion{Text: `{"score": 50}`, CostUSD: c.costPerCall}, nil
}

// stubDeals serves one canned deal context.
type stubDeals struct {
	deal *core.DealContext
	err  error
}

func (s *stubDeals) DealContext(_ context.Context, dealID string) (*core.DealContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.deal == nil || s.deal.Deal.ID != dealID {
		return nil, core.ErrNotFound("deal", dealID)
	}
	return s.deal, nil
}

func testDeal(sector string) *core.DealContext {
	return &core.DealContext{
		Deal: core.Deal{
			ID:     "deal-1",
			Name:   "Acme Robotics",
			Sector: sector,
			Stage:  "seed",
		},
	}
}

// failingCheckpoints wraps a store and fails every checkpoint append.
type failingCheckpoints struct {
	core.AnalysisStore
}

func (s *failingCheckpoints) AppendCheckpoint(_ context.Context, _ *core.AnalysisCheckpoint) error {
	return core.ErrStorage("checkpoint table unavailable")
}
