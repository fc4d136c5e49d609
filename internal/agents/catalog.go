package agents

import (
	"context"
	"fmt"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	"github.com/sacha-rebbouh/angeldesk/internal/scoring"
)

const systemPrompt = "You are a rigorous venture capital due-diligence analyst. " +
	"Ground every claim in the supplied material, state uncertainty plainly, " +
	"and respond with exactly the requested JSON object and nothing else."

// llmAgent is the single agent implementation behind the whole
// catalogue: a named prompt template plus dependency declarations.
// Agents are values over a common contract, not a class hierarchy.
type llmAgent struct {
	name     string
	tier     int
	deps     []Dependency
	template string
	focus    string
	renderer *PromptRenderer
	scorer   *scoring.Scorer
}

func (a *llmAgent) Name() string               { return a.name }
func (a *llmAgent) Tier() int                  { return a.tier }
func (a *llmAgent) Dependencies() []Dependency { return a.deps }

func (a *llmAgent) Run(ctx context.Context, rc *RunContext) (map[string]any, error) {
	prompt, err := a.renderer.Render(a.template, buildPromptData(rc, a.deps, a.focus))
	if err != nil {
		return nil, core.ErrExecution(core.CodeAgentFailed, fmt.Sprintf("building prompt for %s", a.name)).WithCause(err)
	}

	text, err := rc.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeVerdict(text)
	if err != nil {
		return nil, err
	}
	return NormalizeVerdict(a.name, decoded, rc.Deal, a.scorer), nil
}

// sectorSpec declares one tier-2 specialist.
type sectorSpec struct {
	label string
	focus string
}

var sectorSpecs = []sectorSpec{
	{"saas", "Focus on SaaS fundamentals: net revenue retention, logo vs revenue churn, expansion motion, CAC payback by channel, and whether pricing supports the claimed margin structure. Report `net_revenue_retention`, `monthly_churn` and `cac_payback_months` in `metrics` when the documents support them."},
	{"fintech", "Focus on fintech fundamentals: regulatory licensing and exposure, take rate sustainability, counterparty and credit risk, fraud loss rates, and dependence on banking partners. Report `take_rate` and `gross_margin` in `metrics` when the documents support them."},
	{"healthtech", "Focus on healthtech fundamentals: clinical or regulatory pathway (FDA/CE class, timelines), reimbursement strategy, evidence quality behind outcome claims, and sales cycle length into providers or payers."},
	{"deeptech", "Focus on deeptech fundamentals: technical risk remaining before commercialization, IP position and freedom to operate, capital intensity versus the raise, and time to first meaningful revenue. Report `founder_domain_years` and `runway_months` in `metrics` when the documents support them."},
	{"marketplace", "Focus on marketplace fundamentals: which side is constrained, take rate versus disintermediation pressure, liquidity by geography or category, and repeat rate on both sides. Report `take_rate` and `monthly_churn` in `metrics` when the documents support them."},
}

const genericSectorFocus = "No specialist playbook exists for this sector. Apply general sector analysis: industry structure, buyer behavior, regulatory exposure, and how this company's economics compare to known winners in adjacent sectors."

// Catalog builds the default agent registry: five tier-1 investigation
// agents, one specialist per known sector plus a generic fallback for
// tier 2, and the tier-3 synthesis agent.
func Catalog(scorer *scoring.Scorer) (*Registry, error) {
	renderer, err := NewPromptRenderer()
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()

	tier1 := []struct {
		name     string
		template string
	}{
		{"team", "team"},
		{"market", "market"},
		{"financials", "financials"},
		{"competition", "competition"},
		{"product", "product"},
	}
	for _, t := range tier1 {
		if err := reg.Register(&llmAgent{
			name:     t.name,
			tier:     TierInvestigation,
			template: t.template,
			renderer: renderer,
			scorer:   scorer,
		}); err != nil {
			return nil, err
		}
	}

	for _, spec := range sectorSpecs {
		agent := &llmAgent{
			name:     "sector-" + spec.label,
			tier:     TierSector,
			template: "sector",
			focus:    spec.focus,
			renderer: renderer,
			scorer:   scorer,
			// The specialist reads the generalists' output but runs
			// regardless of their outcome.
			deps: []Dependency{{Name: "market"}, {Name: "financials"}},
		}
		if err := reg.RegisterSector(spec.label, agent); err != nil {
			return nil, err
		}
	}
	if err := reg.RegisterGenericSector(&llmAgent{
		name:     "sector-generic",
		tier:     TierSector,
		template: "sector",
		focus:    genericSectorFocus,
		renderer: renderer,
		scorer:   scorer,
		deps:     []Dependency{{Name: "market"}, {Name: "financials"}},
	}); err != nil {
		return nil, err
	}

	if err := reg.Register(&llmAgent{
		name:     "synthesis",
		tier:     TierSynthesis,
		template: "synthesis",
		renderer: renderer,
		scorer:   scorer,
		deps: []Dependency{
			{Name: "financials", Hard: true},
			{Name: "market", Hard: true},
			{Name: "team"},
			{Name: "competition"},
			{Name: "product"},
		},
	}); err != nil {
		return nil, err
	}

	return reg, nil
}
