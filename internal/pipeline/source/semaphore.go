package source

import (
	"context"

	"golang.org/x/time/rate"
)

// RequestSemaphore bounds outbound requests for every caller sharing one
// instance: a token-bucket limiter smooths the request
// rate, and a counting channel semaphore caps how many requests may be
// in flight at once, since a rate limiter alone constrains pace, not
// concurrency.
type RequestSemaphore struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// NewRequestSemaphore builds a semaphore allowing up to n concurrent
// requests and rps requests per second (burst n).
func NewRequestSemaphore(n int, rps float64) *RequestSemaphore {
	if n <= 0 {
		n = 1
	}
	return &RequestSemaphore{
		limiter: rate.NewLimiter(rate.Limit(rps), n),
		slots:   make(chan struct{}, n),
	}
}

// Acquire blocks until both the rate limiter and a concurrency slot allow
// the request through, or ctx is cancelled.
func (s *RequestSemaphore) Acquire(ctx context.Context) (func(), error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		<-s.slots
	}
	return release, nil
}
