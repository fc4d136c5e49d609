package agents

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// Registry maps agent names to implementations and resolves the one
// sector specialist applicable to a deal.
type Registry struct {
	mu            sync.RWMutex
	agents        map[string]Agent
	sectors       map[string]string // sector label -> agent name
	genericSector string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:  make(map[string]Agent),
		sectors: make(map[string]string),
	}
}

// Register adds an agent. Registering the same name twice is a
// configuration error.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return core.ErrConfig(core.CodeInvalidConfig, fmt.Sprintf("agent %q registered twice", name))
	}
	r.agents[name] = a
	return nil
}

// RegisterSector adds a tier-2 specialist and maps it to a sector label.
func (r *Registry) RegisterSector(label string, a Agent) error {
	if err := r.Register(a); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sectors[normalizeSector(label)] = a.Name()
	return nil
}

// RegisterGenericSector adds the fallback specialist used when no
// sector label matches.
func (r *Registry) RegisterGenericSector(a Agent) error {
	if err := r.Register(a); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.genericSector = a.Name()
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, core.ErrConfig(core.CodeUnknownAgent, fmt.Sprintf("no agent registered as %q", name))
	}
	return a, nil
}

// ResolveSector returns the single specialist for a sector: an exact
// label match first, then the closest fuzzy match, then the generic
// fallback. It fails only when no generic fallback is registered,
// which is a configuration error, not a runtime one.
func (r *Registry) ResolveSector(sector string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sector = normalizeSector(sector)
	if name, ok := r.sectors[sector]; ok {
		return r.agents[name], nil
	}

	if sector != "" {
		// Deals rarely use the exact label ("B2B SaaS", "consumer
		// fintech"); match each known label inside the deal's sector
		// string and keep the best score.
		labels := make([]string, 0, len(r.sectors))
		for label := range r.sectors {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		best, bestScore := "", -1
		for _, label := range labels {
			matches := fuzzy.Find(label, []string{sector})
			if len(matches) > 0 && matches[0].Score > bestScore {
				best, bestScore = label, matches[0].Score
			}
		}
		if best != "" {
			return r.agents[r.sectors[best]], nil
		}
	}

	if r.genericSector == "" {
		return nil, core.ErrConfig(core.CodeUnknownSector, fmt.Sprintf("no specialist for sector %q and no generic fallback registered", sector))
	}
	return r.agents[r.genericSector], nil
}

// AgentsFor returns the planned agent set for a deal: every agent in
// the requested tiers, with exactly one specialist in the tier-2 slot.
// An empty tier selection means all tiers. When the synthesis tier and
// the sector tier are both planned, the specialist is wired in as a
// soft dependency of synthesis so it lands in an earlier stage.
func (r *Registry) AgentsFor(sector string, tiers []int) ([]Agent, error) {
	want := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		want[t] = true
	}
	all := len(tiers) == 0

	var sectorAgent Agent
	if all || want[TierSector] {
		var err error
		sectorAgent, err = r.ResolveSector(sector)
		if err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Agent
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := r.agents[name]
		switch a.Tier() {
		case TierSector:
			// Only the resolved specialist joins the plan.
			if sectorAgent != nil && a.Name() == sectorAgent.Name() {
				out = append(out, a)
			}
		case TierSynthesis:
			if all || want[TierSynthesis] {
				if sectorAgent != nil {
					a = withExtraDeps(a, Dependency{Name: sectorAgent.Name()})
				}
				out = append(out, a)
			}
		default:
			if all || want[a.Tier()] {
				out = append(out, a)
			}
		}
	}

	if len(out) == 0 {
		return nil, core.ErrConfig(core.CodeNoAgents, fmt.Sprintf("no agents match tiers %v", tiers))
	}
	return out, nil
}

// normalizeSector lowercases a sector string and strips everything but
// letters and digits, so "Fin-Tech" and "fintech" compare equal.
func normalizeSector(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// agentWithDeps decorates an agent with extra dependency declarations
// computed at planning time.
type agentWithDeps struct {
	Agent
	extra []Dependency
}

func withExtraDeps(a Agent, extra ...Dependency) Agent {
	return &agentWithDeps{Agent: a, extra: extra}
}

func (a *agentWithDeps) Dependencies() []Dependency {
	base := a.Agent.Dependencies()
	out := make([]Dependency, 0, len(base)+len(a.extra))
	out = append(out, base...)
	out = append(out, a.extra...)
	return out
}
