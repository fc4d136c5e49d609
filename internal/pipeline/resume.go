package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/config"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/events"
	"github.com/sacha-rebbouh/angeldesk/internal/logging"
)

// ResumeController re-enters an interrupted or partially-failed
// analysis at agent granularity: it re-invokes only the agents still
// owed a successful result and patches the final record. Already-paid
// successes are never re-run.
type ResumeController struct {
	store    core.AnalysisStore
	deals    core.DealProvider
	registry *agents.Registry
	bus      *events.Bus
	log      *logging.Logger
	cfg      config.PipelineConfig

	// The stage, checkpoint, finalize and abort mechanics are the same
	// as a fresh run; the controller delegates them here.
	inner *Orchestrator
}

// NewResumeController creates a resume controller.
func NewResumeController(store core.AnalysisStore, deals core.DealProvider, registry *agents.Registry, runner *Runner, bus *events.Bus, log *logging.Logger, cfg config.PipelineConfig) *ResumeController {
	if log == nil {
		log = logging.NewNop()
	}
	return &ResumeController{
		store:    store,
		deals:    deals,
		registry: registry,
		bus:      bus,
		log:      log,
		cfg:      cfg,
		inner:    NewOrchestrator(store, deals, registry, runner, bus, log, cfg),
	}
}

// Resume patches a previously failed analysis and returns the
// finalized record. Resuming with nothing owed is an idempotent no-op:
// the analysis comes back unchanged and no agent is invoked.
func (rc *ResumeController) Resume(ctx context.Context, analysisID core.AnalysisID) (*core.Analysis, error) {
	analysis, err := rc.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	checkpoint, err := rc.store.LatestCheckpoint(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	// A failed record with no checkpoint is a run that aborted before
	// its first stage barrier: everything planned is owed. Any other
	// status without a checkpoint has nothing to resume from.
	if checkpoint == nil && analysis.Status != core.AnalysisStatusFailed {
		return nil, core.ErrState(core.CodeNoCheckpoint, fmt.Sprintf("analysis %s has no checkpoint to resume from", analysisID))
	}

	owed := rc.stillOwed(analysis, checkpoint)
	if checkpoint != nil && len(owed) == 0 {
		return analysis, nil
	}

	deal, err := rc.deals.DealContext(ctx, analysis.DealID)
	if err != nil {
		return nil, err
	}
	plan, err := rc.registry.AgentsFor(deal.Deal.Sector, analysis.Tiers)
	if err != nil {
		return nil, err
	}

	// Stage only the owed agents; edges among them keep a dependent
	// behind its retried dependency, everything else is satisfied (or
	// permanently failed) in the analysis's own results.
	owedPlan := make([]agents.Agent, 0, len(plan))
	for _, a := range plan {
		if checkpoint == nil {
			if res, ok := analysis.Results[a.Name()]; !ok || !res.Success {
				owedPlan = append(owedPlan, a)
			}
			continue
		}
		if owed[a.Name()] {
			owedPlan = append(owedPlan, a)
		}
	}
	stages, err := BuildStages(owedPlan)
	if err != nil {
		return nil, err
	}

	// The atomic claim guard rejects a concurrent resumer; a failed
	// analysis is the one terminal state that may be re-claimed.
	if err := rc.store.ClaimRunning(ctx, analysisID); err != nil {
		return nil, err
	}
	analysis.MarkRunning()
	if err := rc.store.SaveAnalysis(ctx, analysis); err != nil {
		return nil, rc.abort(ctx, analysis, err)
	}

	log := rc.log.WithAnalysis(string(analysisID)).WithDeal(analysis.DealID)
	log.Info("analysis resumed", "owed", len(owedPlan), "skipped", len(analysis.Results)-len(owedPlan))
	rc.publishSkipped(analysis, owed)
	if rc.bus != nil {
		rc.bus.Publish(events.NewAnalysisResumed(string(analysisID), analysis.DealID, analysis.CompletedAgents, len(owedPlan)))
	}

	// Resume grants a reduced attempt budget per owed agent rather
	// than the full original retry budget; an agent that fails again
	// is recorded and left for a future resume.
	budget := Budget{Timeout: rc.cfg.AgentTimeout, MaxAttempts: rc.cfg.ResumeAttempts}

	start := time.Now()
	costBefore := analysis.TotalCostUSD
	for i, stage := range stages {
		if err := rc.runStage(ctx, analysis, *deal, i, stage, budget); err != nil {
			return nil, rc.abort(ctx, analysis, err)
		}
	}
	log.Info("resume pass finished",
		"cost_usd", analysis.TotalCostUSD-costBefore,
		"duration", time.Since(start).String())

	// One checkpoint for the whole patch pass.
	if err := rc.checkpoint(ctx, analysis); err != nil {
		return nil, rc.abort(ctx, analysis, err)
	}
	if err := rc.finalize(ctx, analysis, time.Since(start)); err != nil {
		return nil, err
	}
	return analysis, nil
}

// stillOwed computes the agents owed a successful result: every name
// failing in the checkpoint whose entry in the analysis's own results
// is not already successful. The analysis record wins over older
// checkpoints, so a success recorded by an earlier resume pass is
// permanently done even if an old checkpoint lists it as failed.
func (rc *ResumeController) stillOwed(analysis *core.Analysis, checkpoint *core.AnalysisCheckpoint) map[string]bool {
	owed := make(map[string]bool)
	if checkpoint == nil {
		return owed
	}
	for _, failed := range checkpoint.FailedAgents {
		if res, ok := analysis.Results[failed.AgentName]; ok && res.Success {
			continue
		}
		owed[failed.AgentName] = true
	}
	// An analysis aborted mid-run may owe agents the checkpoint never
	// saw; anything failing in the current record is owed too.
	for name, res := range analysis.Results {
		if !res.Success {
			owed[name] = true
		}
	}
	return owed
}

func (rc *ResumeController) publishSkipped(analysis *core.Analysis, owed map[string]bool) {
	if rc.bus == nil {
		return
	}
	for name, res := range analysis.Results {
		if res.Success && !owed[name] {
			rc.bus.Publish(events.NewAgentSkipped(string(analysis.ID), analysis.DealID, name))
		}
	}
}

func (rc *ResumeController) runStage(ctx context.Context, analysis *core.Analysis, deal core.DealContext, stageNum int, stage []agents.Agent, budget Budget) error {
	return rc.inner.runStage(ctx, analysis, deal, stageNum, stage, budget)
}

func (rc *ResumeController) checkpoint(ctx context.Context, analysis *core.Analysis) error {
	return rc.inner.checkpoint(ctx, analysis)
}

func (rc *ResumeController) finalize(ctx context.Context, analysis *core.Analysis, elapsed time.Duration) error {
	return rc.inner.finalize(ctx, analysis, elapsed)
}

func (rc *ResumeController) abort(ctx context.Context, analysis *core.Analysis, cause error) error {
	return rc.inner.abort(ctx, analysis, cause)
}
