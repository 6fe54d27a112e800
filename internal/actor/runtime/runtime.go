// Package runtime implements the actor runner loop (C6): the cooperative
// scheduler that repeatedly pulls the next envelope off an actor's inbox,
// dispatches it, and yields the goroutine so sibling actors sharing the
// process get a turn. It also owns the three high priority control
// messages every actor answers to regardless of what it otherwise
// handles: pause, resume, and quit.
package runtime

import (
	"context"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/querent-ai/querent-go/internal/actor/bus"
	"github.com/querent-ai/querent-go/internal/actor/prioqueue"
	"github.com/querent-ai/querent-go/internal/actor/scheduler"
)

// ExitStatus records why an actor's runner loop stopped.
type ExitStatus int

const (
	// ExitFailure means the actor's handler returned an unrecoverable
	// error or panicked.
	ExitFailure ExitStatus = iota
	// ExitSuccess means the actor asked to quit cleanly.
	ExitSuccess
	// ExitKilled means the owning context was canceled.
	ExitKilled
	// ExitUnreachable means LastMessageBus arrived and the actor opted
	// into auto-quit-when-unreachable.
	ExitUnreachable
)

func (s ExitStatus) String() string {
	switch s {
	case ExitSuccess:
		return "success"
	case ExitKilled:
		return "killed"
	case ExitUnreachable:
		return "unreachable"
	default:
		return "failure"
	}
}

// Starter is implemented by actors that need setup before their first
// message. Optional: checked with a type assertion, matching the runner's
// "nothing about bus.Actor requires this" ambient-hook style.
type Starter interface {
	OnStart(ctx context.Context) error
}

// Stopper is implemented by actors that want to observe their own exit.
type Stopper interface {
	OnStop(ctx context.Context, status ExitStatus)
}

// AutoQuitOnUnreachable is implemented by actors that should quit the
// instant LastMessageBus tells them no external sender can reach them
// anymore.
type AutoQuitOnUnreachable interface {
	QuitOnUnreachable() bool
}

type pauseMsg struct{ ack chan struct{} }
type resumeMsg struct{ ack chan struct{} }
type quitMsg struct {
	status ExitStatus
	ack    chan struct{}
}

// ActorContext is the runtime's per-actor record of the actor's own
// address (Self, a retained clone of its MessageBus that the runner
// releases on exit), its clock, and a Quit shortcut. Spawn creates one for
// every actor; it is not passed to the actor's Handle or OnStart.
type ActorContext[A bus.Actor] struct {
	Self  *bus.MessageBus[A]
	Clock scheduler.Clock

	handle *Handle[A]
}

// Quit requests this actor's own runner loop stop with status after the
// current handler returns.
func (c *ActorContext[A]) Quit(status ExitStatus) {
	c.handle.Quit(status)
}

// Handle is the runtime-owned control surface for one spawned actor: the
// cloneable MessageBus plus lifecycle operations layered on top of it.
type Handle[A bus.Actor] struct {
	Bus *bus.MessageBus[A]

	done   chan struct{}
	once   sync.Once
	status ExitStatus
	mu     sync.Mutex
}

// Pause suspends delivery of low priority messages until Resume is called.
// Blocks until the runner has acknowledged the transition.
func (h *Handle[A]) Pause(ctx context.Context) error {
	ack := make(chan struct{})
	if err := h.Bus.Tell(ctx, bus.High, pauseMsg{ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume undoes a prior Pause.
func (h *Handle[A]) Resume(ctx context.Context) error {
	ack := make(chan struct{})
	if err := h.Bus.Tell(ctx, bus.High, resumeMsg{ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quit asks the actor to stop with the given status once it next reaches
// the top of its runner loop. Does not block.
func (h *Handle[A]) Quit(status ExitStatus) {
	_ = h.Bus.TryTell(bus.High, quitMsg{status: status})
}

// Done is closed once the runner loop has fully exited.
func (h *Handle[A]) Done() <-chan struct{} { return h.done }

// Status returns the exit status. Only meaningful after Done is closed.
func (h *Handle[A]) Status() ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle[A]) setStatus(s ExitStatus) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// Spawn starts actor's runner loop in a new goroutine and returns a
// Handle for controlling it. The loop stops when ctx is canceled, the
// actor requests it via ActorContext.Quit, or (if the actor implements
// AutoQuitOnUnreachable and returns true) LastMessageBus arrives with an
// empty inbox.
func Spawn[A bus.Actor](ctx context.Context, actor A, cap prioqueue.Capacity, clk scheduler.Clock) *Handle[A] {
	b, inbox := bus.New[A](cap, clk)
	h := &Handle[A]{Bus: b, done: make(chan struct{})}

	actorCtx := &ActorContext[A]{Self: b.Clone(), Clock: clk, handle: h}

	go func() {
		defer close(h.done)
		defer inbox.Close()
		defer actorCtx.Self.Release()

		status := ExitSuccess
		defer func() {
			if r := recover(); r != nil {
				status = ExitFailure
			}
			h.setStatus(status)
			if stopper, ok := any(actor).(Stopper); ok {
				stopper.OnStop(ctx, status)
			}
		}()

		if starter, ok := any(actor).(Starter); ok {
			if err := starter.OnStart(ctx); err != nil {
				status = ExitFailure
				return
			}
		}

		paused := false
		for {
			if ctx.Err() != nil {
				status = ExitKilled
				return
			}

			if det, ok := clk.(*scheduler.Deterministic); ok {
				det.Idle()
			}

			var env envelopeView[A]
			var err error
			if paused {
				env, err = recvHighOnly[A](ctx, inbox)
			} else {
				env, err = recvAny[A](ctx, inbox)
			}
			if err != nil {
				if ctx.Err() != nil {
					status = ExitKilled
				} else {
					status = ExitSuccess
				}
				return
			}

			switch m := env.Msg().(type) {
			case pauseMsg:
				paused = true
				close(m.ack)
				continue
			case resumeMsg:
				paused = false
				close(m.ack)
				continue
			case quitMsg:
				status = m.status
				if m.ack != nil {
					close(m.ack)
				}
				return
			case bus.LastMessageBus:
				quitter, ok := any(actor).(AutoQuitOnUnreachable)
				if ok && quitter.QuitOnUnreachable() && inbox.IsEmpty() {
					status = ExitUnreachable
					return
				}
				continue
			}

			release := func() {}
			if det, ok := clk.(*scheduler.Deterministic); ok {
				release = det.EnterHandler()
			}
			dispatchCtx, span := otel.Tracer("internal/actor/runtime").Start(ctx, "actor.dispatch")
			env.Dispatch(dispatchCtx, actor)
			span.End()
			release()

			runtime.Gosched()
		}
	}()

	return h
}

// envelopeView is the minimal surface the runner loop needs from an
// envelope.Envelope[A]; declared here to avoid importing the concrete type
// twice under two names.
type envelopeView[A bus.Actor] interface {
	Msg() any
	Dispatch(ctx context.Context, actor A)
}

func recvAny[A bus.Actor](ctx context.Context, inbox *bus.Inbox[A]) (envelopeView[A], error) {
	env, err := inbox.Recv(ctx)
	return env, err
}

func recvHighOnly[A bus.Actor](ctx context.Context, inbox *bus.Inbox[A]) (envelopeView[A], error) {
	env, err := inbox.RecvHighOnly(ctx)
	return env, err
}
