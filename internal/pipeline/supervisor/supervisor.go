// Package supervisor implements the pipeline-level state machine (C13):
// SpawnPipeline/ObservePipeline/ShutdownPipeline/RestartPipeline on top of
// a per-pipeline driver goroutine that runs source polling, ingestion, and
// extraction to completion, emitting graph/vector events along the way.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/querent-ai/querent-go/internal/eventbus"
	"github.com/querent-ai/querent-go/internal/extraction"
	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/internal/pipeline/ingest"
	"github.com/querent-ai/querent-go/internal/pipeline/source"
	"github.com/querent-ai/querent-go/pkg/resilience"
)

// State is a pipeline's position in its lifecycle.
type State int

const (
	Spawning State = iota
	Running
	Paused
	Quitting
	Failed
	Terminated
)

func (s State) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Quitting:
		return "quitting"
	case Failed:
		return "failed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// IndexingStatistics aggregates everything observers care about for a
// running or finished pipeline.
type IndexingStatistics struct {
	DocsSeen        int
	EventsEmitted   int
	GraphEvents     int
	VectorEvents    int
	BytesProcessed  int64
	SentencesCount  int
	SubjectsCount   int
	PredicatesCount int
	ObjectsCount    int
}

// GraphWriter persists one graph event. internal/storage/graphsink.Sink
// satisfies this.
type GraphWriter interface {
	Write(ctx context.Context, g pipeline.GraphPayload) error
}

// VectorWriter persists one vector event. internal/storage/vectorsink.Sink
// satisfies this.
type VectorWriter interface {
	Write(ctx context.Context, eventID string, v pipeline.VectorPayload, payload map[string]any) error
}

// PipelineConfig wires one pipeline's stages together.
type PipelineConfig struct {
	Source    source.Source
	Processor ingest.Processor
	Extractor *extraction.Extractor
	Graph     GraphWriter
	Vector    VectorWriter
	EventBus  *eventbus.Bus

	DocID         string
	SourceID      string
	ImageID       string
	FixedEntities []pipeline.Entity

	MaxRestarts int
}

type pipelineHandle struct {
	mu    sync.Mutex
	state State
	stats IndexingStatistics
	err   error

	id     string
	cfg    PipelineConfig
	cancel context.CancelFunc
	done   chan struct{}
}

// PipelineSupervisor owns every running pipeline's lifecycle in this
// process, keyed by pipeline id.
type PipelineSupervisor struct {
	mu        sync.Mutex
	pipelines map[string]*pipelineHandle
}

// New builds an empty PipelineSupervisor.
func New() *PipelineSupervisor {
	return &PipelineSupervisor{pipelines: make(map[string]*pipelineHandle)}
}

// SpawnPipeline allocates a new pipeline id, starts its driver goroutine,
// and returns the id without waiting for the driver; until the driver has
// started, ObservePipeline reports the pipeline as Spawning.
func (s *PipelineSupervisor) SpawnPipeline(ctx context.Context, cfg PipelineConfig) (string, error) {
	id := newPipelineID()
	return id, s.spawnWithID(ctx, id, cfg)
}

func (s *PipelineSupervisor) spawnWithID(ctx context.Context, id string, cfg PipelineConfig) error {
	runCtx, cancel := context.WithCancel(context.Background())
	h := &pipelineHandle{state: Spawning, id: id, cfg: cfg, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.pipelines[id] = h
	s.mu.Unlock()

	go s.drive(runCtx, id, h)
	return nil
}

// ObservePipeline returns the pipeline's current statistics snapshot, or
// the zero value and false if the pipeline is unknown.
func (s *PipelineSupervisor) ObservePipeline(id string) (IndexingStatistics, State, bool) {
	s.mu.Lock()
	h, ok := s.pipelines[id]
	s.mu.Unlock()
	if !ok {
		return IndexingStatistics{}, Terminated, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats, h.state, true
}

// ShutdownPipeline marks the pipeline Quitting, cancels its run context,
// and waits (bounded by ctx) for its driver goroutine to exit; the
// pipeline then reports Terminated, or Failed if it had already failed.
func (s *PipelineSupervisor) ShutdownPipeline(ctx context.Context, id string) error {
	s.mu.Lock()
	h, ok := s.pipelines[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: unknown pipeline %q", id)
	}

	h.mu.Lock()
	h.state = Quitting
	h.mu.Unlock()
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RestartPipeline shuts a pipeline down and respawns it under the same id
// with the same configuration.
func (s *PipelineSupervisor) RestartPipeline(ctx context.Context, id string) error {
	s.mu.Lock()
	h, ok := s.pipelines[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: unknown pipeline %q", id)
	}
	cfg := h.cfg

	if err := s.ShutdownPipeline(ctx, id); err != nil {
		return err
	}
	return s.spawnWithID(ctx, id, cfg)
}

func (s *PipelineSupervisor) drive(ctx context.Context, id string, h *pipelineHandle) {
	defer close(h.done)
	defer func() {
		s.mu.Lock()
		h.mu.Lock()
		if h.state != Terminated && h.state != Failed {
			h.state = Terminated
		}
		h.mu.Unlock()
		s.mu.Unlock()
	}()

	setState(h, Running)

	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
	if err := breaker.Call(ctx, h.cfg.Source.CheckConnectivity); err != nil {
		failPipeline(h, err)
		return
	}

	ch, err := source.PollWithRetry(ctx, h.cfg.Source)
	if err != nil {
		failPipeline(h, err)
		return
	}

	files := make(map[string][]pipeline.CollectedBytes)
	for result := range ch {
		item, err := result.Unwrap()
		if err != nil {
			failPipeline(h, err)
			return
		}

		h.mu.Lock()
		h.stats.BytesProcessed += int64(len(item.Data))
		h.mu.Unlock()

		files[item.File] = append(files[item.File], item)
		if !item.Eof {
			continue
		}

		if err := s.ingestAndExtract(ctx, h, files[item.File]); err != nil {
			failPipeline(h, err)
			return
		}
		delete(files, item.File)
	}

	for _, chunks := range files {
		if err := s.ingestAndExtract(ctx, h, chunks); err != nil {
			failPipeline(h, err)
			return
		}
	}

	setState(h, Terminated)
}

func (s *PipelineSupervisor) ingestAndExtract(ctx context.Context, h *pipelineHandle, chunks []pipeline.CollectedBytes) error {
	tokensCh, err := h.cfg.Processor.Ingest(ctx, chunks)
	if err != nil {
		return err
	}

	var text string
	for tok := range tokensCh {
		for _, d := range tok.Data {
			text += d + " "
		}
	}
	if text == "" {
		return nil
	}

	h.mu.Lock()
	h.stats.DocsSeen++
	h.mu.Unlock()

	events, err := h.cfg.Extractor.ExtractFromText(ctx, text, h.cfg.DocID, h.cfg.SourceID, h.cfg.ImageID, h.cfg.FixedEntities, time.Now())
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := s.writeEvent(ctx, h, ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *PipelineSupervisor) writeEvent(ctx context.Context, h *pipelineHandle, ev pipeline.EventState) error {
	h.mu.Lock()
	h.stats.EventsEmitted++
	h.mu.Unlock()

	if h.cfg.EventBus != nil {
		// fan-out is best-effort: a subscriber-side outage shouldn't fail
		// the pipeline that produced the event.
		_ = h.cfg.EventBus.Publish(ctx, h.id, ev)
	}

	switch ev.Kind {
	case pipeline.EventGraph:
		if ev.Graph == nil {
			return nil
		}
		h.mu.Lock()
		h.stats.GraphEvents++
		h.stats.SentencesCount++
		h.stats.SubjectsCount++
		h.stats.PredicatesCount++
		h.stats.ObjectsCount++
		h.mu.Unlock()
		if h.cfg.Graph == nil {
			return nil
		}
		return h.cfg.Graph.Write(ctx, *ev.Graph)
	case pipeline.EventVector:
		if ev.Vector == nil {
			return nil
		}
		h.mu.Lock()
		h.stats.VectorEvents++
		h.mu.Unlock()
		if h.cfg.Vector == nil {
			return nil
		}
		return h.cfg.Vector.Write(ctx, ev.Vector.EventID, *ev.Vector, nil)
	default:
		return nil
	}
}

func setState(h *pipelineHandle, st State) {
	h.mu.Lock()
	h.state = st
	h.mu.Unlock()
}

func failPipeline(h *pipelineHandle, err error) {
	h.mu.Lock()
	h.state = Failed
	h.err = err
	h.mu.Unlock()
}

// newPipelineID allocates a pipeline id. Pipeline ids are UUIDs, unlike the
// custom time-sortable event id minted by extraction.NewEventID: nothing
// downstream needs a pipeline id to sort by creation time, so there's no
// reason to forgo the collision guarantees a UUID gives for free.
func newPipelineID() string {
	return uuid.NewString()
}
