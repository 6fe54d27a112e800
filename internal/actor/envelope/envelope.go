// Package envelope defines the type-erased unit of work that travels
// through an actor's mailbox (C2). An Envelope pairs a closure that knows
// how to apply itself to a concrete actor with the scheduler guard that
// must stay held for the envelope's entire lifetime — from the moment it
// is handed to a sender until the handler returns.
package envelope

import (
	"context"

	"github.com/querent-ai/querent-go/internal/actor/scheduler"
)

// Envelope carries one unit of work addressed to an actor of type A.
// The zero value is not usable; construct with New.
type Envelope[A any] struct {
	run   func(ctx context.Context, actor A)
	guard scheduler.Guard
	msg   any
}

// New wraps run together with the guard that pins simulated time for as
// long as this envelope is alive. msg is kept alongside the dispatch
// closure, unexamined, so the runner loop can recognize runtime control
// messages (pause/resume/quit) without every actor having to.
func New[A any](guard scheduler.Guard, msg any, run func(ctx context.Context, actor A)) Envelope[A] {
	return Envelope[A]{run: run, guard: guard, msg: msg}
}

// Msg returns the original message this envelope carries.
func (e Envelope[A]) Msg() any { return e.msg }

// Dispatch applies the envelope to actor and releases its guard
// unconditionally afterward, even if run panics.
func (e Envelope[A]) Dispatch(ctx context.Context, actor A) {
	defer e.guard.Release()
	e.run(ctx, actor)
}

// Reply is a single-use response slot used by the ask pattern: one sender
// blocks on Recv while exactly one handler eventually calls Send.
type Reply[T any] struct {
	ch chan result[T]
}

type result[T any] struct {
	val T
	err error
}

// NewReply creates an unused reply slot.
func NewReply[T any]() *Reply[T] {
	return &Reply[T]{ch: make(chan result[T], 1)}
}

// Send fulfills the reply. Only the first call has any effect; callers
// must guarantee at most one Send per Reply (enforced by construction: a
// Reply is only ever closed over by a single envelope's run closure).
func (r *Reply[T]) Send(val T, err error) {
	select {
	case r.ch <- result[T]{val: val, err: err}:
	default:
	}
}

// Recv waits for the reply or ctx cancellation.
func (r *Reply[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case res := <-r.ch:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
