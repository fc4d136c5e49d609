package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/store"
	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// resumeRig wires an orchestrator and a resume controller over the same
// store and registry, with financials scripted to fail its first run's
// full retry budget and succeed afterwards.
type resumeRig struct {
	store      *store.MemoryStore
	client     *stubClient
	team       *fakeAgent
	financials *fakeAgent
	synthesis  *fakeAgent
	orch       *Orchestrator
	resume     *ResumeController
}

func newResumeRig(t *testing.T) *resumeRig {
	t.Helper()
	rig := &resumeRig{
		store:  store.NewMemoryStore(),
		client: &stubClient{costPerCall: 0.01},
	}
	// MaxAttempts is 2, so the first run burns 2 failing invocations
	// and the resume pass hits the third, successful one.
	rig.team = &fakeAgent{name: "team", tier: agents.TierInvestigation, runFn: scoring(70)}
	rig.financials = &fakeAgent{name: "financials", tier: agents.TierInvestigation, runFn: failingThenScoring(2, 65)}
	rig.synthesis = &fakeAgent{
		name:  "synthesis",
		tier:  agents.TierSynthesis,
		deps:  []agents.Dependency{{Name: "financials", Hard: true}, {Name: "team"}},
		runFn: scoring(68),
	}
	reg := agents.NewRegistry()
	require.NoError(t, reg.Register(rig.team))
	require.NoError(t, reg.Register(rig.financials))
	require.NoError(t, reg.Register(rig.synthesis))

	deals := &stubDeals{deal: testDeal("robotics")}
	runner := NewRunner(rig.client, 4096, nil)
	cfg := testPipelineConfig()
	rig.orch = NewOrchestrator(rig.store, deals, reg, runner, nil, nil, cfg)
	rig.resume = NewResumeController(rig.store, deals, reg, runner, nil, nil, cfg)
	return rig
}

func TestResumeRetriesOnlyOwedAgents(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	first, err := rig.orch.Start(ctx, "deal-1", []int{1, 3})
	require.NoError(t, err)
	require.Equal(t, core.AnalysisStatusFailed, first.Status)
	require.EqualValues(t, 0, rig.synthesis.runs.Load())
	costAfterFirst := first.TotalCostUSD

	patched, err := rig.resume.Resume(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, core.AnalysisStatusCompleted, patched.Status)
	assert.Equal(t, 3, patched.CompletedAgents)
	assert.Empty(t, patched.Error)

	// Already-successful team was not re-invoked; the owed financials
	// ran once more, and synthesis ran for the first time behind its
	// now-satisfied hard dependency.
	assert.EqualValues(t, 1, rig.team.runs.Load())
	assert.EqualValues(t, 3, rig.financials.runs.Load())
	assert.EqualValues(t, 1, rig.synthesis.runs.Load())

	// Cost went up by exactly the resume pass: one financials call
	// plus one synthesis call.
	assert.InDelta(t, costAfterFirst+0.02, patched.TotalCostUSD, 1e-9)

	// The financials result was superseded, not mutated in place.
	assert.True(t, patched.Results["financials"].Success)
	assert.Equal(t, 1, patched.Results["financials"].Attempts)
}

func TestResumeAppendsOneCheckpointPerPass(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	first, err := rig.orch.Start(ctx, "deal-1", []int{1, 3})
	require.NoError(t, err)
	before, err := rig.store.ListCheckpoints(ctx, first.ID)
	require.NoError(t, err)

	_, err = rig.resume.Resume(ctx, first.ID)
	require.NoError(t, err)

	after, err := rig.store.ListCheckpoints(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)

	// Earlier checkpoints are untouched history; only the newest
	// reflects the patched state.
	assert.Equal(t, before[len(before)-1].ID, after[len(before)-1].ID)
	latest := after[len(after)-1]
	assert.ElementsMatch(t, []string{"team", "financials", "synthesis"}, latest.CompletedAgents)
	assert.Empty(t, latest.FailedAgents)
}

func TestResumeCompletedAnalysisIsNoOp(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)
	// Succeed on the first attempt everywhere.
	rig.financials.runFn = scoring(65)

	done, err := rig.orch.Start(ctx, "deal-1", []int{1, 3})
	require.NoError(t, err)
	require.Equal(t, core.AnalysisStatusCompleted, done.Status)
	runsBefore := rig.financials.runs.Load()
	cps, err := rig.store.ListCheckpoints(ctx, done.ID)
	require.NoError(t, err)

	again, err := rig.resume.Resume(ctx, done.ID)
	require.NoError(t, err)

	assert.Equal(t, core.AnalysisStatusCompleted, again.Status)
	assert.InDelta(t, done.TotalCostUSD, again.TotalCostUSD, 1e-9)
	assert.Equal(t, runsBefore, rig.financials.runs.Load())

	cpsAfter, err := rig.store.ListCheckpoints(ctx, done.ID)
	require.NoError(t, err)
	assert.Len(t, cpsAfter, len(cps))
}

func TestResumeIsIdempotentAcrossRepeats(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	first, err := rig.orch.Start(ctx, "deal-1", []int{1, 3})
	require.NoError(t, err)

	patched, err := rig.resume.Resume(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, core.AnalysisStatusCompleted, patched.Status)

	// A second resume owes nothing and changes nothing.
	again, err := rig.resume.Resume(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.AnalysisStatusCompleted, again.Status)
	assert.InDelta(t, patched.TotalCostUSD, again.TotalCostUSD, 1e-9)
	assert.EqualValues(t, 3, rig.financials.runs.Load())
	assert.EqualValues(t, 1, rig.synthesis.runs.Load())
}

func TestResumeFailsAgainAndStaysResumable(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)
	// financials never recovers.
	rig.financials.runFn = failingThenScoring(100, 0)

	first, err := rig.orch.Start(ctx, "deal-1", []int{1, 3})
	require.NoError(t, err)

	patched, err := rig.resume.Resume(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, core.AnalysisStatusFailed, patched.Status)
	// The resume pass grants a single attempt, not the full budget.
	assert.Equal(t, 1, patched.Results["financials"].Attempts)
	assert.EqualValues(t, 3, rig.financials.runs.Load()) // 2 fresh + 1 resume

	// Still failed, still claimable: a later resume may try again.
	_, err = rig.resume.Resume(ctx, patched.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, rig.financials.runs.Load())
}

func TestResumeFailedAnalysisWithoutCheckpointOwesEverything(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	// A record that failed before its first stage barrier has no
	// checkpoint and no results; the whole plan is owed.
	a := core.NewAnalysis("an-bare", "deal-1", "tiers-1+3", []int{1, 3})
	a.TotalAgents = 3
	a.MarkRunning()
	a.MarkFailed("interrupted before any checkpoint")
	require.NoError(t, rig.store.CreateAnalysis(ctx, a))

	patched, err := rig.resume.Resume(ctx, "an-bare")
	require.NoError(t, err)

	// Financials is still inside its scripted failures, so the pass
	// fails again, but progress is now checkpointed and real.
	assert.Equal(t, core.AnalysisStatusFailed, patched.Status)
	assert.EqualValues(t, 1, rig.team.runs.Load())
	assert.EqualValues(t, 1, rig.financials.runs.Load())
	assert.EqualValues(t, 0, rig.synthesis.runs.Load())
	assert.InDelta(t, 0.02, patched.TotalCostUSD, 1e-9)

	cp, err := rig.store.LatestCheckpoint(ctx, "an-bare")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, []string{"team"}, cp.CompletedAgents)
}

func TestResumePendingAnalysisWithoutCheckpoint(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	a := core.NewAnalysis("an-pending", "deal-1", "full", nil)
	require.NoError(t, rig.store.CreateAnalysis(ctx, a))

	_, err := rig.resume.Resume(ctx, "an-pending")
	require.Error(t, err)
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeNoCheckpoint, domErr.Code)
}

func TestResumeUnknownAnalysis(t *testing.T) {
	ctx := context.Background()
	rig := newResumeRig(t)

	_, err := rig.resume.Resume(ctx, "missing")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}
