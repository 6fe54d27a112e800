package source

import (
	"context"

	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/pkg/fn"
)

// Static replays a fixed slice of CollectedBytes, one per poll. It never
// fails connectivity checks and is meant for tests exercising the
// ingestion/extraction stages without a live collector.
type Static struct {
	Items []pipeline.CollectedBytes
}

// NewStatic builds a Static source over items.
func NewStatic(items []pipeline.CollectedBytes) *Static {
	return &Static{Items: items}
}

func (s *Static) CheckConnectivity(ctx context.Context) error {
	return nil
}

func (s *Static) PollData(ctx context.Context) (<-chan fn.Result[pipeline.CollectedBytes], error) {
	out := make(chan fn.Result[pipeline.CollectedBytes], len(s.Items))
	go func() {
		defer close(out)
		for _, item := range s.Items {
			select {
			case <-ctx.Done():
				return
			case out <- fn.Ok(item):
			}
		}
	}()
	return out, nil
}
