// Package supervisor implements the generic actor supervisor (C7):
// restart-on-failure with exponential backoff, independent of what kind of
// actor is being supervised. The pipeline supervisor
// (internal/pipeline/supervisor) does not use this package; it runs its
// own state machine directly on goroutines.
package supervisor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/querent-ai/querent-go/internal/actor/bus"
	"github.com/querent-ai/querent-go/internal/actor/observe"
	"github.com/querent-ai/querent-go/internal/actor/prioqueue"
	"github.com/querent-ai/querent-go/internal/actor/runtime"
	"github.com/querent-ai/querent-go/internal/actor/scheduler"
)

// Policy configures restart backoff.
type Policy struct {
	MaxRestarts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultPolicy restarts up to 5 times with delay doubling from 500ms,
// capped at 30s, jittered.
var DefaultPolicy = Policy{
	MaxRestarts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Jitter:       true,
}

// Status snapshots a supervised actor's lifecycle for observers.
type Status struct {
	Restarts int
	Running  bool
	LastExit runtime.ExitStatus
	Err      error
}

// Supervisor restarts an actor built by factory whenever its runner loop
// exits with runtime.ExitFailure, until Policy.MaxRestarts is exhausted.
type Supervisor[A bus.Actor] struct {
	factory func() A
	cap     prioqueue.Capacity
	clock   scheduler.Clock
	policy  Policy

	mu      sync.Mutex
	handle  *runtime.Handle[A]
	state   *observe.State[Status]
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New builds a supervisor that will spawn actors via factory on demand.
func New[A bus.Actor](factory func() A, cap prioqueue.Capacity, clk scheduler.Clock, policy Policy) *Supervisor[A] {
	return &Supervisor[A]{
		factory: factory,
		cap:     cap,
		clock:   clk,
		policy:  policy,
		state:   observe.New(Status{}),
	}
}

// Status returns the observable supervision state.
func (s *Supervisor[A]) Status() *observe.State[Status] { return s.state }

// Bus returns the current actor's mailbus, or nil if the supervisor is not
// running.
func (s *Supervisor[A]) Bus() *bus.MessageBus[A] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	return s.handle.Bus
}

// Start spawns the first generation of the supervised actor and begins
// watching it.
func (s *Supervisor[A]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop cancels supervision; the currently running actor (if any) is
// killed and no further restarts happen.
func (s *Supervisor[A]) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if stopped != nil {
		<-stopped
	}
}

func (s *Supervisor[A]) run(ctx context.Context) {
	defer close(s.stopped)

	delay := s.policy.InitialDelay
	for attempt := 0; ; attempt++ {
		actor := s.factory()
		h := runtime.Spawn[A](ctx, actor, s.cap, s.clock)

		s.mu.Lock()
		s.handle = h
		s.mu.Unlock()
		s.state.Set(Status{Restarts: attempt, Running: true})

		select {
		case <-h.Done():
		case <-ctx.Done():
			s.state.Set(Status{Restarts: attempt, Running: false, LastExit: runtime.ExitKilled})
			return
		}

		exit := h.Status()
		s.state.Set(Status{Restarts: attempt, Running: false, LastExit: exit})

		if exit != runtime.ExitFailure {
			return
		}
		if attempt >= s.policy.MaxRestarts {
			return
		}

		wait := delay
		if s.policy.Jitter {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if wait > s.policy.MaxDelay {
			wait = s.policy.MaxDelay
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		delay *= 2
		if delay > s.policy.MaxDelay {
			delay = s.policy.MaxDelay
		}
	}
}
