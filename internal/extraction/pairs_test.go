package extraction

import (
	"testing"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

func TestCreateBinaryPairsOrdersHeadByStartIndex(t *testing.T) {
	cs := pipeline.ClassifiedSentence{
		Sentence: "Acme hired Jane",
		Entities: []pipeline.Entity{
			{Text: "Acme", Label: "ORG", StartIdx: 0, EndIdx: 1},
			{Text: "Jane", Label: "PERSON", StartIdx: 2, EndIdx: 3},
		},
	}
	pairs := CreateBinaryPairs(cs)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d (%v)", len(pairs), pairs)
	}
	if pairs[0].Head.Text != "Acme" || pairs[0].Tail.Text != "Jane" {
		t.Fatalf("expected earlier-starting entity as head: %+v", pairs[0])
	}
}

func TestCreateBinaryPairsSortsEntitiesBeforePairing(t *testing.T) {
	cs := pipeline.ClassifiedSentence{
		Sentence: "Jane founded Acme",
		Entities: []pipeline.Entity{
			{Text: "Acme", Label: "ORG", StartIdx: 2, EndIdx: 3},
			{Text: "Jane", Label: "PERSON", StartIdx: 0, EndIdx: 1},
		},
	}
	pairs := CreateBinaryPairs(cs)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d (%v)", len(pairs), pairs)
	}
	if pairs[0].Head.Text != "Jane" || pairs[0].Tail.Text != "Acme" {
		t.Fatalf("expected Jane (earlier start) as head: %+v", pairs[0])
	}
}

func TestCreateBinaryPairsSingleEntity(t *testing.T) {
	cs := pipeline.ClassifiedSentence{
		Entities: []pipeline.Entity{{Text: "Acme", Label: "ORG"}},
	}
	if pairs := CreateBinaryPairs(cs); len(pairs) != 0 {
		t.Fatalf("expected no pairs from a single entity, got %v", pairs)
	}
}
