package core

import (
	"testing"
	"time"
)

func TestAnalysisLifecycle(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", []int{1, 2, 3})

	if a.Status != AnalysisStatusPending {
		t.Fatalf("new analysis status = %s, want pending", a.Status)
	}

	a.MarkRunning()
	if a.Status != AnalysisStatusRunning {
		t.Fatalf("status = %s, want running", a.Status)
	}
	if a.StartedAt == nil {
		t.Error("StartedAt not set on MarkRunning")
	}

	if err := a.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if a.CompletedAt == nil {
		t.Error("CompletedAt not set on MarkCompleted")
	}

	// Completing again from a terminal state is rejected.
	if err := a.MarkCompleted(); err == nil {
		t.Error("expected error completing a completed analysis")
	}
}

func TestAnalysisMarkFailedFromAnyState(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", nil)
	a.MarkFailed("store unreachable")
	if a.Status != AnalysisStatusFailed {
		t.Fatalf("status = %s, want failed", a.Status)
	}
	if a.Error != "store unreachable" {
		t.Errorf("error = %q", a.Error)
	}

	// A failed analysis can be re-claimed by resume.
	a.MarkRunning()
	if a.Status != AnalysisStatusRunning {
		t.Fatalf("status after re-claim = %s, want running", a.Status)
	}
	if a.Error != "" {
		t.Errorf("error not cleared on re-claim: %q", a.Error)
	}
}

func TestMergeResultNeverOverwritesSuccess(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", nil)

	ok := NewSuccessResult("market", map[string]any{"score": 80}, 0.10, time.Second, 1)
	a.MergeResult(ok)

	later := NewFailureResult("market", "boom", 0.05, time.Second, 1)
	a.MergeResult(later)

	got := a.Results["market"]
	if !got.Success {
		t.Fatal("successful result was overwritten by a later failure")
	}

	// A failure is superseded by a later success.
	a.MergeResult(NewFailureResult("team", "boom", 0, time.Second, 1))
	a.MergeResult(NewSuccessResult("team", map[string]any{}, 0.02, time.Second, 1))
	if !a.Results["team"].Success {
		t.Fatal("failed result not superseded by later success")
	}
}

func TestRecomputeCountsSuccessesOnly(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", nil)
	a.MergeResult(NewSuccessResult("team", nil, 0, 0, 1))
	a.MergeResult(NewSuccessResult("market", nil, 0, 0, 1))
	a.MergeResult(NewFailureResult("legal", "x", 0, 0, 1))
	a.Recompute()

	if a.CompletedAgents != 2 {
		t.Errorf("CompletedAgents = %d, want 2", a.CompletedAgents)
	}
}

func TestAddCostMonotonic(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", nil)
	a.AddCost(0.25)
	a.AddCost(0)
	a.AddCost(-1) // ignored, cost never decreases
	a.AddCost(0.05)

	if a.TotalCostUSD != 0.30 {
		t.Errorf("TotalCostUSD = %v, want 0.30", a.TotalCostUSD)
	}
}

func TestSnapshotCheckpoint(t *testing.T) {
	a := NewAnalysis("an-1", "deal-1", "full", nil)
	a.MergeResult(NewSuccessResult("team", nil, 0, 0, 1))
	a.MergeResult(NewFailureResult("legal", "parse error", 0.01, 0, 3))

	cp := SnapshotCheckpoint("cp-1", a)
	if cp.AnalysisID != a.ID {
		t.Errorf("checkpoint analysis id = %s", cp.AnalysisID)
	}
	if len(cp.CompletedAgents) != 1 || cp.CompletedAgents[0] != "team" {
		t.Errorf("completed = %v", cp.CompletedAgents)
	}
	if len(cp.FailedAgents) != 1 || cp.FailedAgents[0].AgentName != "legal" {
		t.Errorf("failed = %v", cp.FailedAgents)
	}
	if len(cp.Results) != 2 {
		t.Errorf("results len = %d", len(cp.Results))
	}
}

func TestDependencyFailedResult(t *testing.T) {
	r := NewDependencyFailedResult("synthesis", "financials")
	if r.Success {
		t.Error("synthesized result must be a failure")
	}
	if r.CostUSD != 0 {
		t.Error("synthesized result must be zero cost")
	}
	if r.Error == "" {
		t.Error("synthesized result must carry a cause")
	}
}
