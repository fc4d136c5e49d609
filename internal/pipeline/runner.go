package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// Budget bounds one agent execution: a per-attempt timeout and a fixed
// number of attempts.
type Budget struct {
	Timeout     time.Duration
	MaxAttempts int
}

// RetryNotifyFunc is called before each retry with the attempt that
// just failed.
type RetryNotifyFunc func(attempt int, err error)

// Runner executes a single agent under a budget and returns a uniform
// result envelope. It never returns an error: exhausted budgets become
// a failure result carrying the last error message and the cost
// metered across every attempt.
type Runner struct {
	client    core.CompletionClient
	maxTokens int
	log       *logging.Logger
}

// NewRunner creates a runner.
func NewRunner(client core.CompletionClient, maxTokens int, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{client: client, maxTokens: maxTokens, log: log}
}

// Run invokes the agent with retries. Retries are immediate and local
// to this agent's execution slot; nothing else waits on them. Costs
// are additive across attempts; execution time covers the final
// attempt only. The timeout is cooperative cancellation of the
// in-flight call, not a kill: the runner stops waiting and the
// completion client is responsible for cleanup.
func (r *Runner) Run(ctx context.Context, agent agents.Agent, deal core.DealContext, prior map[string]*core.AgentResult, budget Budget) *core.AgentResult {
	return r.RunWithNotify(ctx, agent, deal, prior, budget, nil)
}

// RunWithNotify is Run with a callback before each retry.
func (r *Runner) RunWithNotify(ctx context.Context, agent agents.Agent, deal core.DealContext, prior map[string]*core.AgentResult, budget Budget, notify RetryNotifyFunc) *core.AgentResult {
	name := agent.Name()
	log := r.log.WithAgent(name)
	rc := agents.NewRunContext(deal, prior, r.client, r.maxTokens, log)

	attempts := budget.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	var lastDuration time.Duration
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		payload, duration, err := r.attempt(ctx, agent, rc, budget.Timeout)
		lastDuration = duration
		if err == nil {
			return core.NewSuccessResult(name, payload, rc.CostUSD(), duration, attempt)
		}
		lastErr = err

		if ctx.Err() != nil {
			// The caller is gone; further attempts would bill for
			// nothing anyone waits on.
			break
		}
		if !core.IsRetryable(err) {
			// A rejected request stays rejected; retrying re-bills
			// the same failure.
			log.Warn("agent failed with non-retryable error", "attempt", attempt, "error", err.Error())
			break
		}
		if attempt < attempts {
			log.Warn("agent attempt failed, retrying", "attempt", attempt, "error", err.Error())
			if notify != nil {
				notify(attempt, err)
			}
			continue
		}
		log.Warn("agent attempts exhausted", "attempts", attempt, "error", err.Error())
	}

	return core.NewFailureResult(name, lastErr.Error(), rc.CostUSD(), lastDuration, made)
}

func (r *Runner) attempt(ctx context.Context, agent agents.Agent, rc *agents.RunContext, timeout time.Duration) (map[string]any, time.Duration, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	payload, err := agent.Run(attemptCtx, rc)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = core.ErrTimeout("agent " + agent.Name() + " exceeded its timeout").WithCause(err)
		}
		return nil, duration, err
	}
	return payload, duration, nil
}
