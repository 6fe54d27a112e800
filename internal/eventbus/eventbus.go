// Package eventbus fans extraction events out to subscribers over NATS,
// one subject per pipeline, so the control plane and any number of
// external consumers can observe a pipeline's output without coupling to
// its process.
package eventbus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/pkg/natsutil"
)

// Subject returns the subject a pipeline's events are published on.
func Subject(pipelineID string) string {
	return fmt.Sprintf("querent.events.%s", pipelineID)
}

// Bus publishes and subscribes to EventState fan-out for one or more
// pipelines over a shared NATS connection.
type Bus struct {
	nc *nats.Conn
}

// New wraps an already-connected NATS connection.
func New(nc *nats.Conn) *Bus {
	return &Bus{nc: nc}
}

// Publish fans one event out on its pipeline's subject.
func (b *Bus) Publish(ctx context.Context, pipelineID string, event pipeline.EventState) error {
	return natsutil.Publish(ctx, b.nc, Subject(pipelineID), event)
}

// Subscribe registers handler for every event published on a pipeline's
// subject. Malformed messages are dropped by natsutil.Subscribe rather
// than surfaced, matching how the rest of the fan-out is best-effort.
func (b *Bus) Subscribe(pipelineID string, handler func(context.Context, pipeline.EventState)) (*nats.Subscription, error) {
	return natsutil.Subscribe(b.nc, Subject(pipelineID), handler)
}
