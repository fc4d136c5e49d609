package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/scoring"
)

type stubAgent struct {
	name string
	tier int
	deps []Dependency
}

func (a *stubAgent) Name() string               { return a.name }
func (a *stubAgent) Tier() int                  { return a.tier }
func (a *stubAgent) Dependencies() []Dependency { return a.deps }
func (a *stubAgent) Run(context.Context, *RunContext) (map[string]any, error) {
	return map[string]any{"score": float64(50)}, nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubAgent{name: "team", tier: TierInvestigation}))

	err := reg.Register(&stubAgent{name: "team", tier: TierInvestigation})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestGetUnknownAgent(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nonexistent")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestResolveSectorExactMatch(t *testing.T) {
	reg := NewRegistry()
	saas := &stubAgent{name: "sector-saas", tier: TierSector}
	require.NoError(t, reg.RegisterSector("saas", saas))
	require.NoError(t, reg.RegisterGenericSector(&stubAgent{name: "sector-generic", tier: TierSector}))

	a, err := reg.ResolveSector("SaaS")
	require.NoError(t, err)
	assert.Equal(t, "sector-saas", a.Name())
}

func TestResolveSectorFuzzyMatch(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSector("fintech", &stubAgent{name: "sector-fintech", tier: TierSector}))
	require.NoError(t, reg.RegisterSector("healthtech", &stubAgent{name: "sector-healthtech", tier: TierSector}))
	require.NoError(t, reg.RegisterGenericSector(&stubAgent{name: "sector-generic", tier: TierSector}))

	a, err := reg.ResolveSector("Fin-Tech")
	require.NoError(t, err)
	assert.Equal(t, "sector-fintech", a.Name())

	a, err = reg.ResolveSector("consumer fintech")
	require.NoError(t, err)
	assert.Equal(t, "sector-fintech", a.Name())
}

func TestResolveSectorGenericFallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterSector("saas", &stubAgent{name: "sector-saas", tier: TierSector}))
	require.NoError(t, reg.RegisterGenericSector(&stubAgent{name: "sector-generic", tier: TierSector}))

	a, err := reg.ResolveSector("")
	require.NoError(t, err)
	assert.Equal(t, "sector-generic", a.Name())
}

func TestResolveSectorNoDefault(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.ResolveSector("spacetech")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestCatalogAgentsForAllTiers(t *testing.T) {
	reg, err := Catalog(scoring.NewScorer())
	require.NoError(t, err)

	plan, err := reg.AgentsFor("saas", nil)
	require.NoError(t, err)

	// Five generalists, one specialist, one synthesis.
	require.Len(t, plan, 7)

	byName := make(map[string]Agent, len(plan))
	for _, a := range plan {
		byName[a.Name()] = a
	}
	assert.Contains(t, byName, "team")
	assert.Contains(t, byName, "financials")
	assert.Contains(t, byName, "sector-saas")
	assert.NotContains(t, byName, "sector-fintech")
	assert.NotContains(t, byName, "sector-generic")

	// Exactly one tier-2 agent in the plan.
	var sectorCount int
	for _, a := range plan {
		if a.Tier() == TierSector {
			sectorCount++
		}
	}
	assert.Equal(t, 1, sectorCount)

	// Synthesis picked up the resolved specialist as a dependency.
	synth := byName["synthesis"]
	require.NotNil(t, synth)
	var hasSectorDep, hardFinancials bool
	for _, dep := range synth.Dependencies() {
		if dep.Name == "sector-saas" {
			hasSectorDep = true
		}
		if dep.Name == "financials" && dep.Hard {
			hardFinancials = true
		}
	}
	assert.True(t, hasSectorDep)
	assert.True(t, hardFinancials)
}

func TestCatalogAgentsForTierSubset(t *testing.T) {
	reg, err := Catalog(scoring.NewScorer())
	require.NoError(t, err)

	plan, err := reg.AgentsFor("ignored", []int{TierInvestigation})
	require.NoError(t, err)
	require.Len(t, plan, 5)
	for _, a := range plan {
		assert.Equal(t, TierInvestigation, a.Tier())
	}
}

func TestAgentsForEmptyPlan(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubAgent{name: "team", tier: TierInvestigation}))

	_, err := reg.AgentsFor("saas", []int{TierSynthesis})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}
