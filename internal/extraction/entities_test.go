package extraction

import (
	"context"
	"testing"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

func TestFindEntityIndicesGroupsContiguousRuns(t *testing.T) {
	labeled := []model.LabeledToken{
		{Token: "new", Label: "ORG"},
		{Token: "york", Label: "ORG"},
		{Token: "is", Label: "O"},
		{Token: "big", Label: "O"},
		{Token: "acme", Label: "ORG"},
	}
	entities := FindEntityIndices(labeled)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d (%v)", len(entities), entities)
	}
	if entities[0].Text != "new york" || entities[0].StartIdx != 0 || entities[0].EndIdx != 2 {
		t.Fatalf("unexpected first entity: %+v", entities[0])
	}
	if entities[1].Text != "acme" || entities[1].StartIdx != 4 || entities[1].EndIdx != 5 {
		t.Fatalf("unexpected second entity: %+v", entities[1])
	}
}

func TestMatchEntitiesWithTokens(t *testing.T) {
	tokens := []string{"Acme", "Corp", "hired", "Jane", "Doe", "yesterday"}
	entities := []pipeline.Entity{
		{Text: "Acme Corp", Label: "ORG"},
		{Text: "Jane Doe", Label: "PERSON"},
		{Text: "missing entity", Label: "ORG"},
	}
	matched := MatchEntitiesWithTokens(tokens, entities)
	if len(matched) != 2 {
		t.Fatalf("expected 2 matched entities, got %d (%v)", len(matched), matched)
	}
	if matched[0].StartIdx != 0 || matched[0].EndIdx != 2 {
		t.Fatalf("unexpected span for Acme Corp: %+v", matched[0])
	}
	if matched[1].StartIdx != 3 || matched[1].EndIdx != 5 {
		t.Fatalf("unexpected span for Jane Doe: %+v", matched[1])
	}
}

func TestClassifySentenceWithFixedEntities(t *testing.T) {
	tok := model.NewWhitespaceModel(64)
	cs, err := ClassifySentence(context.Background(), tok, nil, "Acme Corp hired Jane Doe",
		[]pipeline.Entity{{Text: "Acme Corp", Label: "ORG"}, {Text: "Jane Doe", Label: "PERSON"}})
	if err != nil {
		t.Fatalf("ClassifySentence error: %v", err)
	}
	if len(cs.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %v", cs.Entities)
	}
}

func TestClassifySentenceWithNER(t *testing.T) {
	ner := model.NewSimpleNER(64, map[string]string{"acme": "ORG", "jane": "PERSON"})
	cs, err := ClassifySentence(context.Background(), ner, ner, "acme hired jane", nil)
	if err != nil {
		t.Fatalf("ClassifySentence error: %v", err)
	}
	if len(cs.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %v", cs.Entities)
	}
}

func TestLabelEntitiesInSentencesDropsSinglesAndEmpties(t *testing.T) {
	ner := model.NewSimpleNER(64, map[string]string{"acme": "ORG", "jane": "PERSON"})
	sentences := []string{"acme hired jane", "acme is a company", "nothing tagged here"}
	out, err := LabelEntitiesInSentences(context.Background(), ner, ner, sentences, nil)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 classified sentence with >=2 entities, got %d (%v)", len(out), out)
	}
}
