package extraction

import (
	"strings"
	"testing"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

func TestExtractPredicateCandidatesExcludesEntitySpans(t *testing.T) {
	// tokens: [Acme, quietly, founded, by, Jane]
	tokens := []string{"Acme", "quietly", "founded", "by", "Jane"}
	attn := pipeline.AttentionMatrix{Rows: [][]float32{
		{0, 0.8, 0.1, 0, 0},
		{0, 0, 0.7, 0.1, 0},
		{0, 0, 0, 0.6, 0.1},
		{0, 0, 0, 0, 0.5},
		{0, 0, 0, 0, 0},
	}}
	pair := pipeline.EntityPair{
		Head: pipeline.Entity{Text: "Acme", StartIdx: 0, EndIdx: 1},
		Tail: pipeline.Entity{Text: "Jane", StartIdx: 4, EndIdx: 5},
	}
	cands := ExtractPredicateCandidates(attn, tokens, pair, 3, 3)
	if len(cands) == 0 {
		t.Fatal("expected at least one predicate candidate")
	}
	for _, c := range cands {
		if c.Predicate == "" {
			t.Fatal("empty predicate should have been filtered")
		}
		if strings.Contains(c.Predicate, "Acme") || strings.Contains(c.Predicate, "Jane") {
			t.Fatalf("predicate %q includes an entity token", c.Predicate)
		}
	}
}

func TestSelectHighestScoreRelationFirstSeenWinsTies(t *testing.T) {
	cands := []pipeline.PredicateScore{
		{Predicate: "founded", Score: 0.9},
		{Predicate: "co-founded", Score: 0.9},
	}
	best, ok := SelectHighestScoreRelation(cands)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.Predicate != "founded" {
		t.Fatalf("expected first-seen tie winner %q, got %q", "founded", best.Predicate)
	}
}

func TestSelectHighestScoreRelationEmpty(t *testing.T) {
	if _, ok := SelectHighestScoreRelation(nil); ok {
		t.Fatal("expected no selection for empty candidates")
	}
}

func TestMergeSimilarRelationsFoldsAcrossPairs(t *testing.T) {
	rels := []pipeline.HeadTailRelations{
		{
			Pair:      pipeline.EntityPair{Head: pipeline.Entity{Text: "Acme"}, Tail: pipeline.Entity{Text: "Jane"}},
			Relations: []pipeline.PredicateScore{{Predicate: "founded", Score: 0.4}},
		},
		{
			Pair:      pipeline.EntityPair{Head: pipeline.Entity{Text: "Acme"}, Tail: pipeline.Entity{Text: "Bob"}},
			Relations: []pipeline.PredicateScore{{Predicate: "co-founded", Score: 0.6}},
		},
	}
	merged := MergeSimilarRelations(rels)
	if len(merged) != 1 {
		t.Fatalf("expected the shorter predicate folded into the longer, got %v", merged)
	}
	if merged[0].Relations[0].Predicate != "co-founded" {
		t.Fatalf("expected surviving predicate %q, got %q", "co-founded", merged[0].Relations[0].Predicate)
	}
	want := float32(1.0)
	if got := merged[0].Relations[0].Score; got != want {
		t.Fatalf("expected summed score %v, got %v", want, got)
	}
}

func TestMergeSimilarRelationsLeavesDistinctRelationsAlone(t *testing.T) {
	rels := []pipeline.HeadTailRelations{
		{Relations: []pipeline.PredicateScore{{Predicate: "founded", Score: 0.4}}},
		{Relations: []pipeline.PredicateScore{{Predicate: "acquired", Score: 0.5}}},
	}
	merged := MergeSimilarRelations(rels)
	if len(merged) != 2 {
		t.Fatalf("expected both distinct relations to survive, got %v", merged)
	}
}

func TestIndividualFilterDropsStopPhrasesAndWeakScores(t *testing.T) {
	cands := []pipeline.PredicateScore{
		{Predicate: "of the", Score: 0.9},
		{Predicate: "founded", Score: 0.04},
		{Predicate: "co-founded", Score: 0.3},
	}
	out := IndividualFilter(cands)
	if len(out) != 1 || out[0].Predicate != "co-founded" {
		t.Fatalf("expected only co-founded to survive, got %v", out)
	}
}

func TestIndividualFilterDedupesByLemma(t *testing.T) {
	cands := []pipeline.PredicateScore{
		{Predicate: "founded", Score: 0.3},
		{Predicate: "founding", Score: 0.5},
	}
	out := IndividualFilter(cands)
	if len(out) != 1 {
		t.Fatalf("expected lemma collision to collapse to one candidate, got %v", out)
	}
	if out[0].Predicate != "founding" {
		t.Fatalf("expected higher-scoring surface form to win, got %q", out[0].Predicate)
	}
}
