package events

import (
	"testing"
	"time"
)

func TestSubscribeReceivesMatchingTypes(t *testing.T) {
	t.Parallel()
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe(TypeAgentCompleted)

	bus.Publish(NewAgentStarted("an-1", "deal-1", "team"))
	bus.Publish(NewAgentCompleted("an-1", "deal-1", "team", 72, 0.04, 1200))

	select {
	case ev := <-ch:
		if ev.EventType() != TypeAgentCompleted {
			t.Fatalf("expected agent_completed, got %s", ev.EventType())
		}
		agentEv := ev.(AgentEvent)
		if agentEv.Agent != "team" || agentEv.Score != 72 {
			t.Errorf("unexpected payload: %+v", agentEv)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %s", ev.EventType())
	default:
	}
}

func TestSubscribeAllTypes(t *testing.T) {
	t.Parallel()
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(NewAnalysisStarted("an-1", "deal-1", "full", []int{1, 2, 3}, 7))
	bus.Publish(NewCheckpointSaved("an-1", "deal-1", "cp-1", 3, 1))

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("event %d not received", i)
		}
	}
}

func TestRingBufferDropsOldest(t *testing.T) {
	t.Parallel()
	bus := New(2)
	defer bus.Close()

	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(NewAgentStarted("an-1", "deal-1", "market"))
	}

	if bus.DroppedCount() == 0 {
		t.Error("expected drops with a full buffer")
	}

	// The newest events survive.
	var last AgentEvent
	for {
		select {
		case ev := <-ch:
			last = ev.(AgentEvent)
			continue
		default:
		}
		break
	}
	if last.Attempt != 5 {
		t.Errorf("expected newest event to survive, got attempt %d", last.Attempt)
	}
}

func TestPriorityNeverDrops(t *testing.T) {
	t.Parallel()
	bus := New(1)
	defer bus.Close()

	ch := bus.SubscribePriority()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 60; i++ {
			bus.PublishPriority(NewAnalysisCompleted("an-1", "deal-1", 7, 0.42, 9000))
		}
	}()

	for i := 0; i < 60; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("priority event %d not delivered", i)
		}
	}
	<-done

	if bus.DroppedCount() != 0 {
		t.Errorf("priority subscriber dropped %d events", bus.DroppedCount())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(NewAgentStarted("an-1", "deal-1", "team"))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	bus := New(10)
	ch := bus.Subscribe()

	bus.Close()
	bus.Close()
	bus.Publish(NewAgentStarted("an-1", "deal-1", "team"))

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}
}

func TestEventFields(t *testing.T) {
	t.Parallel()
	ev := NewAnalysisFailed("an-9", "deal-3", "2 agents failed", 2, 0.11)
	if ev.AnalysisID() != "an-9" {
		t.Errorf("analysis id: %s", ev.AnalysisID())
	}
	if ev.EventType() != TypeAnalysisFailed {
		t.Errorf("type: %s", ev.EventType())
	}
	if ev.Timestamp().IsZero() {
		t.Error("timestamp not set")
	}
	if ev.Deal != "deal-3" {
		t.Errorf("deal id: %s", ev.Deal)
	}
}
