package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/querent-ai/querent-go/internal/extraction"
	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
	"github.com/querent-ai/querent-go/internal/pipeline/ingest"
	"github.com/querent-ai/querent-go/internal/pipeline/source"
)

type fakeGraphWriter struct {
	mu    sync.Mutex
	count int
}

func (f *fakeGraphWriter) Write(ctx context.Context, g pipeline.GraphPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

type fakeVectorWriter struct {
	mu    sync.Mutex
	count int
}

func (f *fakeVectorWriter) Write(ctx context.Context, eventID string, v pipeline.VectorPayload, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func testConfig(t *testing.T) (PipelineConfig, *fakeGraphWriter, *fakeVectorWriter) {
	t.Helper()
	ner := model.NewSimpleNER(64, map[string]string{"acme": "ORG", "jane": "PERSON"})
	embedder := model.NewHashEmbedder(8)
	ex := extraction.New(ner.WhitespaceModel, ner, embedder)

	items := []pipeline.CollectedBytes{
		{File: "doc-1.txt", SourceID: "src-1", Data: []byte("acme quietly hired jane yesterday.")},
		{File: "doc-1.txt", SourceID: "src-1", Eof: true},
	}
	gw := &fakeGraphWriter{}
	vw := &fakeVectorWriter{}

	return PipelineConfig{
		Source:    source.NewStatic(items),
		Processor: ingest.NewTextProcessor(),
		Extractor: ex,
		Graph:     gw,
		Vector:    vw,
		DocID:     "doc-1",
		SourceID:  "src-1",
	}, gw, vw
}

func TestSpawnPipelineRunsToCompletion(t *testing.T) {
	sup := New()
	cfg, gw, vw := testConfig(t)

	id, err := sup.SpawnPipeline(context.Background(), cfg)
	if err != nil {
		t.Fatalf("SpawnPipeline: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var stats IndexingStatistics
	var state State
	for time.Now().Before(deadline) {
		var ok bool
		stats, state, ok = sup.ObservePipeline(id)
		if !ok {
			t.Fatal("expected pipeline to be observable")
		}
		if state == Terminated || state == Failed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if state != Terminated {
		t.Fatalf("expected Terminated, got %v (stats=%+v)", state, stats)
	}
	if stats.DocsSeen != 1 {
		t.Fatalf("expected 1 doc seen, got %d", stats.DocsSeen)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if gw.count == 0 || vw.count == 0 {
		t.Fatalf("expected sinks to receive events: graph=%d vector=%d", gw.count, vw.count)
	}
}

func TestObservePipelineUnknownID(t *testing.T) {
	sup := New()
	if _, _, ok := sup.ObservePipeline("missing"); ok {
		t.Fatal("expected unknown pipeline id to report not-found")
	}
}

func TestShutdownPipelineReachesTerminated(t *testing.T) {
	sup := New()
	cfg, _, _ := testConfig(t)
	id, err := sup.SpawnPipeline(context.Background(), cfg)
	if err != nil {
		t.Fatalf("SpawnPipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.ShutdownPipeline(ctx, id); err != nil {
		t.Fatalf("ShutdownPipeline: %v", err)
	}
	_, state, ok := sup.ObservePipeline(id)
	if !ok || state != Terminated {
		t.Fatalf("expected Terminated after shutdown, got %v", state)
	}
}
