// Package bus implements the actor mailbus (C5): MessageBus is the
// cloneable send-side handle, Inbox is the unique receive-side handle, and
// both sit on top of the same prioqueue.Queue. A MessageBus also tracks how
// many clones of itself are outstanding so it can notify the actor, via a
// high priority LastMessageBus marker, exactly when the last external
// sender has let go of it.
package bus

import (
	"context"
	"sync/atomic"
	"time"
	"weak"

	"github.com/querent-ai/querent-go/internal/actor/envelope"
	"github.com/querent-ai/querent-go/internal/actor/prioqueue"
	"github.com/querent-ai/querent-go/internal/actor/scheduler"
)

// Priority re-exports prioqueue's lanes so callers need not import that
// package directly just to pick one.
type Priority = prioqueue.Priority

const (
	High = prioqueue.High
	Low  = prioqueue.Low
)

// Actor is the minimal contract every actor type must satisfy: a single
// dynamically-typed handler entry point. Concrete actors type-switch on msg
// inside Handle; this keeps MessageBus and Inbox message-shape agnostic
// rather than threading a second type parameter through every API.
type Actor interface {
	Handle(ctx context.Context, msg any)
}

// LastMessageBus is delivered, high priority, the instant the last external
// clone of an actor's MessageBus is released. An actor that wants to
// auto-quit once nobody can reach it anymore watches for this message.
type LastMessageBus struct{}

type inner[A Actor] struct {
	queue    *prioqueue.Queue[envelope.Envelope[A]]
	clock    scheduler.Clock
	refCount *atomic.Int64
}

// MessageBus is the cloneable send-side handle to an actor's mailbox.
type MessageBus[A Actor] struct {
	inner *inner[A]
}

// Inbox is the unique receive-side handle to an actor's mailbox. It must
// never be cloned; only the actor's own runner loop should hold one.
type Inbox[A Actor] struct {
	queue *prioqueue.Queue[envelope.Envelope[A]]
}

// WeakMessageBus holds a non-owning reference to a MessageBus. Upgrade
// fails once the actor's mailbox has become unreachable from anywhere
// else — Go's GC, not an explicit refcount, decides when that happens, so
// Upgrade is best-effort: it can return true for a short while after the
// last strong clone was released, until the collector actually reclaims
// the mailbox.
type WeakMessageBus[A Actor] struct {
	weak weak.Pointer[inner[A]]
}

// New builds a fresh MessageBus/Inbox pair sharing one queue of the given
// low priority capacity policy, clocked by clk.
func New[A Actor](cap prioqueue.Capacity, clk scheduler.Clock) (*MessageBus[A], *Inbox[A]) {
	q := prioqueue.New[envelope.Envelope[A]](cap)
	in := &inner[A]{queue: q, clock: clk, refCount: &atomic.Int64{}}
	in.refCount.Store(1)
	return &MessageBus[A]{inner: in}, &Inbox[A]{queue: q}
}

// Clone returns a new send-side handle sharing the same mailbox, bumping
// the outstanding-clone count.
func (b *MessageBus[A]) Clone() *MessageBus[A] {
	b.inner.refCount.Add(1)
	return &MessageBus[A]{inner: b.inner}
}

// Downgrade returns a non-owning weak handle to this mailbox.
func (b *MessageBus[A]) Downgrade() WeakMessageBus[A] {
	return WeakMessageBus[A]{weak: weak.Make(b.inner)}
}

// Upgrade attempts to recover a strong MessageBus from a weak one.
func (w WeakMessageBus[A]) Upgrade() (*MessageBus[A], bool) {
	in := w.weak.Value()
	if in == nil {
		return nil, false
	}
	in.refCount.Add(1)
	return &MessageBus[A]{inner: in}, true
}

// Release gives up this clone. Once the outstanding-clone count drops to
// one (meaning only the runtime's own internal clone is left), the actor
// is notified with a high priority LastMessageBus envelope.
func (b *MessageBus[A]) Release() {
	left := b.inner.refCount.Add(-1)
	if left == 1 {
		guard := b.inner.clock.NewGuard()
		msg := LastMessageBus{}
		env := envelope.New[A](guard, msg, func(ctx context.Context, actor A) {
			actor.Handle(ctx, msg)
		})
		_ = b.inner.queue.SendHigh(env)
	}
}

// Tell enqueues msg for asynchronous delivery on the given lane. Low
// priority sends block until capacity frees, the actor drops, or ctx ends.
func (b *MessageBus[A]) Tell(ctx context.Context, priority Priority, msg any) error {
	guard := b.inner.clock.NewGuard()
	env := envelope.New[A](guard, msg, func(ctx context.Context, actor A) {
		actor.Handle(ctx, msg)
	})
	if priority == prioqueue.High {
		return b.inner.queue.SendHigh(env)
	}
	return b.inner.queue.SendLow(ctx, env)
}

// TryTell enqueues msg without blocking. Only meaningful for the low
// priority lane; high priority sends are always accepted immediately.
func (b *MessageBus[A]) TryTell(priority Priority, msg any) error {
	guard := b.inner.clock.NewGuard()
	env := envelope.New[A](guard, msg, func(ctx context.Context, actor A) {
		actor.Handle(ctx, msg)
	})
	if priority == prioqueue.High {
		return b.inner.queue.SendHigh(env)
	}
	return b.inner.queue.TrySendLow(env)
}

// TellWithBackpressureCounter behaves like Tell on the low priority lane,
// but additionally reports into counter the microseconds spent actually
// blocked — measured only for the send itself, never for anything the
// caller does afterward (e.g. waiting on an ask reply). A send that is
// accepted immediately (no backpressure) contributes zero.
func (b *MessageBus[A]) TellWithBackpressureCounter(ctx context.Context, msg any, counter *atomic.Int64) error {
	guard := b.inner.clock.NewGuard()
	env := envelope.New[A](guard, msg, func(ctx context.Context, actor A) {
		actor.Handle(ctx, msg)
	})
	err := b.inner.queue.TrySendLow(env)
	if err != prioqueue.ErrFull {
		return err
	}
	start := time.Now()
	err = b.inner.queue.SendLow(ctx, env)
	if counter != nil {
		counter.Add(time.Since(start).Microseconds())
	}
	return err
}

// Ask sends a request built by makeMsg (which embeds a fresh Reply) and
// waits for the actor's handler to fulfill it.
func Ask[A Actor, R any](ctx context.Context, b *MessageBus[A], priority Priority, makeMsg func(reply *envelope.Reply[R]) any) (R, error) {
	reply := envelope.NewReply[R]()
	msg := makeMsg(reply)
	if err := b.Tell(ctx, priority, msg); err != nil {
		var zero R
		return zero, err
	}
	return reply.Recv(ctx)
}

// Recv returns the next envelope, preferring high priority, suspending if
// neither lane has anything ready.
func (in *Inbox[A]) Recv(ctx context.Context) (envelope.Envelope[A], error) {
	return in.queue.Recv(ctx)
}

// RecvHighOnly returns only high priority envelopes; used while paused.
func (in *Inbox[A]) RecvHighOnly(ctx context.Context) (envelope.Envelope[A], error) {
	return in.queue.RecvHighOnly(ctx)
}

// IsEmpty reports whether both lanes are currently empty.
func (in *Inbox[A]) IsEmpty() bool {
	return in.queue.IsEmpty()
}

// Close tears down the shared queue; further sends fail with
// prioqueue.ErrDisconnected and pending receives wake with that error.
func (in *Inbox[A]) Close() {
	in.queue.Close()
}

// DrainForTest empties the pending low priority backlog. Test-only.
func (in *Inbox[A]) DrainForTest() []envelope.Envelope[A] {
	return in.queue.DrainLow()
}
