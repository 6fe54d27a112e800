package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

func TestExtractFromTextProducesPairedGraphAndVectorEvents(t *testing.T) {
	ner := model.NewSimpleNER(64, map[string]string{
		"acme": "ORG",
		"jane": "PERSON",
	})
	embedder := model.NewHashEmbedder(8)
	ex := New(ner.WhitespaceModel, ner, embedder)

	events, err := ex.ExtractFromText(context.Background(), "acme quietly hired jane yesterday.",
		"doc-1", "source-1", "", nil, time.Now())
	if err != nil {
		t.Fatalf("ExtractFromText error: %v", err)
	}
	if len(events)%2 != 0 {
		t.Fatalf("expected events in graph/vector pairs, got odd count %d", len(events))
	}
	for i := 0; i < len(events); i += 2 {
		if events[i].Kind != pipeline.EventGraph {
			t.Fatalf("event %d: expected graph event first, got %v", i, events[i].Kind)
		}
		if events[i+1].Kind != pipeline.EventVector {
			t.Fatalf("event %d: expected vector event second, got %v", i+1, events[i+1].Kind)
		}
		if events[i].Graph.EventID != events[i+1].Vector.EventID {
			t.Fatalf("graph/vector event ids diverge: %q vs %q", events[i].Graph.EventID, events[i+1].Vector.EventID)
		}
	}
}

func TestExtractFromTextNoEntitiesYieldsNoEvents(t *testing.T) {
	ner := model.NewSimpleNER(64, map[string]string{})
	embedder := model.NewHashEmbedder(8)
	ex := New(ner.WhitespaceModel, ner, embedder)

	events, err := ex.ExtractFromText(context.Background(), "nothing interesting happens here.",
		"doc-1", "source-1", "", nil, time.Now())
	if err != nil {
		t.Fatalf("ExtractFromText error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}
