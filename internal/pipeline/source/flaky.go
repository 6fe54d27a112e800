package source

import (
	"context"
	"errors"
	"sync"

	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/pkg/fn"
)

// ErrFlaky is returned by Flaky while it is still simulating failures.
var ErrFlaky = errors.New("source: simulated transient failure")

// Flaky fails its first FailCount connectivity checks and polls, then
// succeeds, replaying Items. It exercises retry/backoff wiring in tests
// without a real unreliable upstream.
type Flaky struct {
	Items     []pipeline.CollectedBytes
	FailCount int

	mu     sync.Mutex
	checks int
	polls  int
}

// NewFlaky builds a Flaky source that fails failCount times before
// succeeding.
func NewFlaky(items []pipeline.CollectedBytes, failCount int) *Flaky {
	return &Flaky{Items: items, FailCount: failCount}
}

func (f *Flaky) CheckConnectivity(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checks < f.FailCount {
		f.checks++
		return ErrFlaky
	}
	return nil
}

func (f *Flaky) PollData(ctx context.Context) (<-chan fn.Result[pipeline.CollectedBytes], error) {
	f.mu.Lock()
	if f.polls < f.FailCount {
		f.polls++
		f.mu.Unlock()
		return nil, ErrFlaky
	}
	f.mu.Unlock()

	out := make(chan fn.Result[pipeline.CollectedBytes], len(f.Items))
	go func() {
		defer close(out)
		for _, item := range f.Items {
			select {
			case <-ctx.Done():
				return
			case out <- fn.Ok(item):
			}
		}
	}()
	return out, nil
}

// PollWithRetry wraps PollData with the package's default retry policy,
// the shape a real pipeline supervisor drives a poller with.
func PollWithRetry(ctx context.Context, s Source) (<-chan fn.Result[pipeline.CollectedBytes], error) {
	result := fn.Retry(ctx, RetryOpts, func(ctx context.Context) fn.Result[<-chan fn.Result[pipeline.CollectedBytes]] {
		return fn.FromPair(s.PollData(ctx))
	})
	return result.Unwrap()
}
