package extraction

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("internal/extraction")

// startStage opens a span for one of the algorithm's numbered steps. The
// returned func ends it; call via defer at the top of the traced block.
func startStage(ctx context.Context, step string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, step)
	return ctx, span.End
}
