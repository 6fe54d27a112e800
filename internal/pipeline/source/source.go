// Package source implements the collector side of the semantic extraction
// pipeline: pollers that read from an external system (filesystem, object
// store, API, drive) and emit CollectedBytes for ingestion to decode.
package source

import (
	"context"

	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/pkg/fn"
)

// Source polls an external system for raw bytes and reports whether it can
// currently be reached. PollData's channel is closed when the poll is
// exhausted; each CollectedBytes may itself carry Eof to close one logical
// file within a longer-lived poll.
type Source interface {
	PollData(ctx context.Context) (<-chan fn.Result[pipeline.CollectedBytes], error)
	CheckConnectivity(ctx context.Context) error
}

// RetryOpts used by reference sources and real pollers alike when a single
// fetch attempt fails transiently.
var RetryOpts = fn.DefaultRetry
