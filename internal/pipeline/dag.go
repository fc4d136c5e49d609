// Package pipeline schedules and executes analysis runs: dependency
// staging, per-agent retry budgets, checkpointing and resume.
package pipeline

import (
	"sort"

	"github.com/sacha-rebbouh/angeldesk/internal/agents"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// dagBuilder computes dependency stages over a planned agent set.
// Edges pointing at agents outside the plan are dropped: they cannot
// order anything in this run and are satisfied (or not) by prior
// results at execution time.
type dagBuilder struct {
	agents  map[string]agents.Agent
	edges   map[string][]string // agent -> dependencies within the plan
	reverse map[string][]string // agent -> dependents
}

func newDAGBuilder(plan []agents.Agent) *dagBuilder {
	d := &dagBuilder{
		agents:  make(map[string]agents.Agent, len(plan)),
		edges:   make(map[string][]string, len(plan)),
		reverse: make(map[string][]string, len(plan)),
	}
	for _, a := range plan {
		d.agents[a.Name()] = a
	}
	for _, a := range plan {
		name := a.Name()
		for _, dep := range a.Dependencies() {
			if _, inPlan := d.agents[dep.Name]; !inPlan {
				continue
			}
			d.edges[name] = append(d.edges[name], dep.Name)
			d.reverse[dep.Name] = append(d.reverse[dep.Name], name)
		}
	}
	return d
}

// BuildStages partitions the plan into topological layers: stage 0
// holds agents with no in-plan dependencies, stage k agents whose
// dependencies all sit in stages < k. A dependency cycle is a fatal
// configuration error detected before any agent runs.
func BuildStages(plan []agents.Agent) ([][]agents.Agent, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	d := newDAGBuilder(plan)
	if err := d.detectCycle(); err != nil {
		return nil, err
	}
	return d.levels(), nil
}

// detectCycle checks the dependency graph with a DFS over the
// recursion stack.
func (d *dagBuilder) detectCycle() error {
	visited := make(map[string]bool, len(d.agents))
	recStack := make(map[string]bool, len(d.agents))

	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		recStack[name] = true
		for _, dep := range d.edges[name] {
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}
		recStack[name] = false
		return false
	}

	names := d.sortedNames()
	for _, name := range names {
		if !visited[name] {
			if dfs(name) {
				return core.ErrConfig(core.CodeDependencyCycle, "agent dependency graph contains a cycle")
			}
		}
	}
	return nil
}

// levels groups agents into parallel execution stages. Within a stage
// agents are sorted by name so planning output is deterministic.
func (d *dagBuilder) levels() [][]agents.Agent {
	assigned := make(map[string]bool, len(d.agents))
	names := d.sortedNames()

	var stages [][]agents.Agent
	for len(assigned) < len(d.agents) {
		var stage []agents.Agent
		for _, name := range names {
			if assigned[name] {
				continue
			}
			ready := true
			for _, dep := range d.edges[name] {
				if !assigned[dep] {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, d.agents[name])
			}
		}
		for _, a := range stage {
			assigned[a.Name()] = true
		}
		stages = append(stages, stage)
	}
	return stages
}

func (d *dagBuilder) sortedNames() []string {
	names := make([]string, 0, len(d.agents))
	for name := range d.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
