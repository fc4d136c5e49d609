package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

func stageNames(stage []agents.Agent) []string {
	names := make([]string, len(stage))
	for i, a := range stage {
		names[i] = a.Name()
	}
	return names
}

func TestBuildStagesLayers(t *testing.T) {
	plan := []agents.Agent{
		&fakeAgent{name: "team", tier: 1},
		&fakeAgent{name: "financials", tier: 1},
		&fakeAgent{name: "saas", tier: 2, deps: []agents.Dependency{{Name: "financials"}}},
		&fakeAgent{name: "synthesis", tier: 3, deps: []agents.Dependency{
			{Name: "financials", Hard: true},
			{Name: "saas"},
		}},
	}

	stages, err := BuildStages(plan)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, []string{"financials", "team"}, stageNames(stages[0]))
	assert.Equal(t, []string{"saas"}, stageNames(stages[1]))
	assert.Equal(t, []string{"synthesis"}, stageNames(stages[2]))
}

func TestBuildStagesParallelWhenIndependent(t *testing.T) {
	plan := []agents.Agent{
		&fakeAgent{name: "market", tier: 1},
		&fakeAgent{name: "team", tier: 1},
		&fakeAgent{name: "product", tier: 1},
	}

	stages, err := BuildStages(plan)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, []string{"market", "product", "team"}, stageNames(stages[0]))
}

func TestBuildStagesCycle(t *testing.T) {
	plan := []agents.Agent{
		&fakeAgent{name: "a", tier: 1, deps: []agents.Dependency{{Name: "b"}}},
		&fakeAgent{name: "b", tier: 1, deps: []agents.Dependency{{Name: "a"}}},
	}

	_, err := BuildStages(plan)
	require.Error(t, err)
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeDependencyCycle, domErr.Code)
	assert.Equal(t, core.ErrCatConfig, domErr.Category)
}

func TestBuildStagesDropsOutOfPlanEdges(t *testing.T) {
	// A tier-subset run plans an agent whose dependency is not part of
	// the plan; that edge must not order (or deadlock) anything.
	plan := []agents.Agent{
		&fakeAgent{name: "synthesis", tier: 3, deps: []agents.Dependency{
			{Name: "financials", Hard: true},
			{Name: "market"},
		}},
	}

	stages, err := BuildStages(plan)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, []string{"synthesis"}, stageNames(stages[0]))
}

func TestBuildStagesEmptyPlan(t *testing.T) {
	stages, err := BuildStages(nil)
	require.NoError(t, err)
	assert.Nil(t, stages)
}
