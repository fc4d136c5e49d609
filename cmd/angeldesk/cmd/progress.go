package cmd

import (
	"fmt"
	"sync"

	"github.com/sacha-rebbouh/angeldesk/internal/events"
)

// progressPrinter renders bus events as terse one-line progress output
// while a synchronous analyze or resume run is in flight.
type progressPrinter struct {
	bus  *events.Bus
	ch   <-chan events.Event
	done chan struct{}
	wg   sync.WaitGroup
}

func startProgress(bus *events.Bus) *progressPrinter {
	p := &progressPrinter{
		bus: bus,
		ch: bus.Subscribe(
			events.TypeStageStarted,
			events.TypeAgentStarted,
			events.TypeAgentRetrying,
			events.TypeAgentCompleted,
			events.TypeAgentFailed,
			events.TypeAgentSkipped,
			events.TypeCheckpointSaved,
		),
		done: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *progressPrinter) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case ev, open := <-p.ch:
			if !open {
				return
			}
			printEvent(ev)
		}
	}
}

func printEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.StageEvent:
		fmt.Printf("stage %d: %v\n", e.Stage+1, e.Agents)
	case events.AgentEvent:
		switch e.Type {
		case events.TypeAgentStarted:
			fmt.Printf("  … %s\n", e.Agent)
		case events.TypeAgentRetrying:
			fmt.Printf("  ↻ %s (attempt %d failed: %s)\n", e.Agent, e.Attempt, e.Error)
		case events.TypeAgentCompleted:
			fmt.Printf("  ✓ %s  score=%d  cost=$%.4f  %dms\n", e.Agent, e.Score, e.CostUSD, e.DurationMs)
		case events.TypeAgentFailed:
			fmt.Printf("  ✗ %s  %s\n", e.Agent, e.Error)
		case events.TypeAgentSkipped:
			fmt.Printf("  = %s (carried over from checkpoint)\n", e.Agent)
		}
	case events.CheckpointSavedEvent:
		fmt.Printf("checkpoint %s  completed=%d failed=%d\n", e.CheckpointID, e.CompletedAgents, e.FailedAgents)
	}
}

// stop unsubscribes and waits for the printer goroutine to drain.
func (p *progressPrinter) stop() {
	close(p.done)
	p.bus.Unsubscribe(p.ch)
	p.wg.Wait()
}
