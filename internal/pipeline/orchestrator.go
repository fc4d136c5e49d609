package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/events"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// Orchestrator drives an analysis from claim to a terminal state:
// plans the agent set, partitions it into dependency stages, fans each
// stage out through the runner, checkpoints after every stage and
// finalizes the analysis record.
type Orchestrator struct {
	store    core.AnalysisStore
	deals    core.DealProvider
	registry *agents.Registry
	runner   *Runner
	bus      *events.Bus
	log      *logging.Logger
	cfg      config.PipelineConfig
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(store core.AnalysisStore, deals core.DealProvider, registry *agents.Registry, runner *Runner, bus *events.Bus, log *logging.Logger, cfg config.PipelineConfig) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{
		store:    store,
		deals:    deals,
		registry: registry,
		runner:   runner,
		bus:      bus,
		log:      log,
		cfg:      cfg,
	}
}

// Start runs a full analysis for a deal and returns the finalized
// record. Configuration errors (unknown sector without fallback,
// dependency cycles) surface before any agent executes and before any
// record is written.
func (o *Orchestrator) Start(ctx context.Context, dealID string, tiers []int) (*core.Analysis, error) {
	deal, err := o.deals.DealContext(ctx, dealID)
	if err != nil {
		return nil, err
	}

	plan, err := o.registry.AgentsFor(deal.Deal.Sector, tiers)
	if err != nil {
		return nil, err
	}
	stages, err := BuildStages(plan)
	if err != nil {
		return nil, err
	}

	analysis := core.NewAnalysis(core.AnalysisID(uuid.NewString()), dealID, modeName(tiers), tiers)
	analysis.TotalAgents = len(plan)
	if err := o.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	if err := o.store.ClaimRunning(ctx, analysis.ID); err != nil {
		return nil, err
	}
	analysis.MarkRunning()
	if err := o.store.SaveAnalysis(ctx, analysis); err != nil {
		return nil, o.abort(ctx, analysis, err)
	}

	log := o.log.WithAnalysis(string(analysis.ID)).WithDeal(dealID)
	log.Info("analysis started", "agents", len(plan), "stages", len(stages))
	o.publish(events.NewAnalysisStarted(string(analysis.ID), dealID, analysis.Mode, tiers, len(plan)))

	start := time.Now()
	for i, stage := range stages {
		if err := o.runStage(ctx, analysis, *deal, i, stage, Budget{
			Timeout:     o.cfg.AgentTimeout,
			MaxAttempts: o.cfg.MaxAttempts,
		}); err != nil {
			return nil, o.abort(ctx, analysis, err)
		}
		if err := o.checkpoint(ctx, analysis); err != nil {
			return nil, o.abort(ctx, analysis, err)
		}
		if err := checkCostCeiling(analysis, o.cfg.MaxCostUSD); err != nil {
			return nil, o.abort(ctx, analysis, err)
		}
	}

	if err := o.finalize(ctx, analysis, time.Since(start)); err != nil {
		return nil, err
	}
	return analysis, nil
}

// runStage executes every member of one stage concurrently and merges
// the outcomes. Members whose hard dependency failed are synthesized
// as zero-cost failures without invoking the runner. The stage is a
// barrier: this returns only once every member has a terminal result.
func (o *Orchestrator) runStage(ctx context.Context, analysis *core.Analysis, deal core.DealContext, stageNum int, stage []agents.Agent, budget Budget) error {
	names := make([]string, len(stage))
	for i, a := range stage {
		names[i] = a.Name()
	}
	o.publish(events.NewStageStarted(string(analysis.ID), analysis.DealID, stageNum, names))

	// Agents read a snapshot of strictly earlier stages; nothing in
	// this stage observes a sibling's output.
	prior := snapshotResults(analysis)

	results := make([]*core.AgentResult, len(stage))
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range stage {
		i, agent := i, agent
		g.Go(func() error {
			if dep, failed := o.failedHardDep(agent, prior); failed {
				results[i] = core.NewDependencyFailedResult(agent.Name(), dep)
				o.publish(events.NewAgentFailed(string(analysis.ID), analysis.DealID, agent.Name(), results[i].Error, 0))
				return nil
			}

			o.publish(events.NewAgentStarted(string(analysis.ID), analysis.DealID, agent.Name()))
			res := o.runner.RunWithNotify(gctx, agent, deal, prior, budget, func(attempt int, err error) {
				o.publish(events.NewAgentRetrying(string(analysis.ID), analysis.DealID, agent.Name(), attempt, err.Error()))
			})
			results[i] = res

			if res.Success {
				o.publish(events.NewAgentCompleted(string(analysis.ID), analysis.DealID, agent.Name(), verdictScore(res), res.CostUSD, res.ExecutionTimeMs))
			} else {
				o.publish(events.NewAgentFailed(string(analysis.ID), analysis.DealID, agent.Name(), res.Error, res.CostUSD))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		analysis.MergeResult(res)
		analysis.AddCost(res.CostUSD)
	}
	analysis.Recompute()

	o.publish(events.NewStageCompleted(string(analysis.ID), analysis.DealID, stageNum, names))
	return nil
}

// failedHardDep reports whether any hard dependency of the agent lacks
// a successful result.
func (o *Orchestrator) failedHardDep(agent agents.Agent, prior map[string]*core.AgentResult) (string, bool) {
	for _, dep := range agent.Dependencies() {
		if !dep.Hard {
			continue
		}
		res, ok := prior[dep.Name]
		if !ok || !res.Success {
			return dep.Name, true
		}
	}
	return "", false
}

// checkpoint persists the analysis record and appends a progress
// snapshot. A storage error here is an orchestration failure: it
// propagates and aborts the run, it is never treated as agent failure.
func (o *Orchestrator) checkpoint(ctx context.Context, analysis *core.Analysis) error {
	analysis.UpdatedAt = time.Now()
	if err := o.store.SaveAnalysis(ctx, analysis); err != nil {
		return err
	}
	cp := core.SnapshotCheckpoint(uuid.NewString(), analysis)
	if err := o.store.AppendCheckpoint(ctx, cp); err != nil {
		return err
	}
	o.publish(events.NewCheckpointSaved(string(analysis.ID), analysis.DealID, cp.ID, len(cp.CompletedAgents), len(cp.FailedAgents)))
	return nil
}

// finalize drives the analysis to its terminal state after the last
// stage: completed when every agent succeeded, failed otherwise.
func (o *Orchestrator) finalize(ctx context.Context, analysis *core.Analysis, elapsed time.Duration) error {
	failed := analysis.FailedEntries()
	if len(failed) == 0 && analysis.CompletedAgents == analysis.TotalAgents {
		if err := analysis.MarkCompleted(); err != nil {
			return err
		}
		o.publishPriority(events.NewAnalysisCompleted(string(analysis.ID), analysis.DealID, analysis.CompletedAgents, analysis.TotalCostUSD, elapsed.Milliseconds()))
	} else {
		analysis.MarkFailed(fmt.Sprintf("%d of %d agents failed", len(failed), analysis.TotalAgents))
		o.publishPriority(events.NewAnalysisFailed(string(analysis.ID), analysis.DealID, analysis.Error, len(failed), analysis.TotalCostUSD))
	}

	analysis.UpdatedAt = time.Now()
	return o.store.SaveAnalysis(ctx, analysis)
}

// abort handles an orchestration-level failure: the analysis is marked
// failed so it is never left stuck in running, partial progress stays
// merged, and the last written checkpoint remains the resume point.
func (o *Orchestrator) abort(ctx context.Context, analysis *core.Analysis, cause error) error {
	o.log.WithAnalysis(string(analysis.ID)).Error("analysis aborted", "error", cause.Error())
	analysis.MarkFailed(cause.Error())
	analysis.UpdatedAt = time.Now()
	if saveErr := o.store.SaveAnalysis(ctx, analysis); saveErr != nil {
		o.log.WithAnalysis(string(analysis.ID)).Error("failed to persist aborted analysis", "error", saveErr.Error())
	}
	o.publishPriority(events.NewAnalysisFailed(string(analysis.ID), analysis.DealID, cause.Error(), len(analysis.FailedEntries()), analysis.TotalCostUSD))
	return cause
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) publishPriority(ev events.Event) {
	if o.bus != nil {
		o.bus.PublishPriority(ev)
	}
}

// snapshotResults copies the analysis result map so concurrent stage
// members share an immutable view.
func snapshotResults(analysis *core.Analysis) map[string]*core.AgentResult {
	prior := make(map[string]*core.AgentResult, len(analysis.Results))
	for name, res := range analysis.Results {
		prior[name] = res
	}
	return prior
}

// verdictScore extracts the normalized score from a verdict payload.
func verdictScore(res *core.AgentResult) int {
	if res.Data == nil {
		return 0
	}
	if v, ok := res.Data["score"].(float64); ok {
		return int(v)
	}
	return 0
}

// checkCostCeiling enforces the run-level spend cap at stage barriers.
// Already accumulated cost stays recorded; the run stops before another
// stage can be paid for. A zero ceiling disables the check.
func checkCostCeiling(analysis *core.Analysis, ceiling float64) error {
	if ceiling <= 0 || analysis.TotalCostUSD <= ceiling {
		return nil
	}
	return core.ErrExecution(core.CodeCostCeiling,
		fmt.Sprintf("analysis spend $%.4f exceeds the $%.2f ceiling", analysis.TotalCostUSD, ceiling))
}

// modeName labels the analysis variant implied by a tier selection.
func modeName(tiers []int) string {
	if len(tiers) == 0 {
		return "full"
	}
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = strconv.Itoa(t)
	}
	return "tiers-" + strings.Join(parts, "+")
}
