package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/querent-ai/querent-go/internal/actor/actest"
	"github.com/querent-ai/querent-go/internal/actor/bus"
	"github.com/querent-ai/querent-go/internal/actor/prioqueue"
	"github.com/querent-ai/querent-go/internal/actor/scheduler"
)

func TestSpawnDispatchesMessages(t *testing.T) {
	actor := &actest.PingCounter{}
	h := Spawn[*actest.PingCounter](context.Background(), actor, prioqueue.Unbounded(), scheduler.RealClock{})
	defer h.Quit(ExitSuccess)

	for i := 0; i < 5; i++ {
		if err := h.Bus.Tell(context.Background(), bus.Low, actest.Ping{}); err != nil {
			t.Fatalf("tell: %v", err)
		}
	}

	deadline := time.After(time.Second)
	for actor.Count.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("only handled %d of 5 pings", actor.Count.Load())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPauseSuspendsLowPriority(t *testing.T) {
	actor := &actest.PingCounter{}
	h := Spawn[*actest.PingCounter](context.Background(), actor, prioqueue.Unbounded(), scheduler.RealClock{})
	defer h.Quit(ExitSuccess)

	ctx := context.Background()
	if err := h.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := h.Bus.Tell(ctx, bus.Low, actest.Ping{}); err != nil {
		t.Fatalf("tell: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if actor.Count.Load() != 0 {
		t.Fatalf("expected no pings handled while paused, got %d", actor.Count.Load())
	}

	if err := h.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	deadline := time.After(time.Second)
	for actor.Count.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("ping never delivered after resume")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestQuitStopsRunner(t *testing.T) {
	actor := &actest.PingCounter{}
	h := Spawn[*actest.PingCounter](context.Background(), actor, prioqueue.Unbounded(), scheduler.RealClock{})
	h.Quit(ExitSuccess)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after Quit")
	}
	if h.Status() != ExitSuccess {
		t.Fatalf("want ExitSuccess, got %v", h.Status())
	}
}

func TestContextCancelKillsRunner(t *testing.T) {
	actor := &actest.PingCounter{}
	ctx, cancel := context.WithCancel(context.Background())
	h := Spawn[*actest.PingCounter](ctx, actor, prioqueue.Unbounded(), scheduler.RealClock{})
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	if h.Status() != ExitKilled {
		t.Fatalf("want ExitKilled, got %v", h.Status())
	}
}
