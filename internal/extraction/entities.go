package extraction

import (
	"context"
	"strings"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// ClassifySentence tokenizes a sentence and resolves its entities, either
// by matching a caller-supplied entity list against the tokenization
// (fixedEntities non-empty) or by running NER token classification and
// grouping the labeled runs (fixedEntities empty, ner non-nil).
func ClassifySentence(ctx context.Context, tok model.Tokenizer, ner model.NERModel, sentence string, fixedEntities []pipeline.Entity) (pipeline.ClassifiedSentence, error) {
	ids, err := tok.Tokenize(ctx, sentence)
	if err != nil {
		return pipeline.ClassifiedSentence{}, err
	}
	tokens, err := tok.TokensToWords(ctx, ids)
	if err != nil {
		return pipeline.ClassifiedSentence{}, err
	}

	var entities []pipeline.Entity
	switch {
	case len(fixedEntities) > 0:
		entities = MatchEntitiesWithTokens(tokens, fixedEntities)
	case ner != nil:
		labeled, err := ner.TokenClassification(ctx, ids)
		if err != nil {
			return pipeline.ClassifiedSentence{}, err
		}
		entities = FindEntityIndices(labeled)
	}

	return pipeline.ClassifiedSentence{
		Sentence: sentence,
		Tokens:   tokens,
		Entities: entities,
	}, nil
}

// LabelEntitiesInSentences runs ClassifySentence over every sentence in a
// chunk, skipping any that yield fewer than two entities since those can
// never produce a pair.
func LabelEntitiesInSentences(ctx context.Context, tok model.Tokenizer, ner model.NERModel, sentences []string, fixedEntities []pipeline.Entity) ([]pipeline.ClassifiedSentence, error) {
	out := make([]pipeline.ClassifiedSentence, 0, len(sentences))
	for _, s := range sentences {
		cs, err := ClassifySentence(ctx, tok, ner, s, fixedEntities)
		if err != nil {
			return nil, err
		}
		if len(cs.Entities) < 2 {
			continue
		}
		out = append(out, cs)
	}
	return out, nil
}

// FindEntityIndices folds a token-classification result's contiguous runs
// of a shared non-"O" label into Entity spans with token-index bounds.
// EndIdx is exclusive.
func FindEntityIndices(labeled []model.LabeledToken) []pipeline.Entity {
	var entities []pipeline.Entity
	i := 0
	for i < len(labeled) {
		label := labeled[i].Label
		if label == "O" || label == "" {
			i++
			continue
		}
		start := i
		var words []string
		for i < len(labeled) && labeled[i].Label == label {
			words = append(words, labeled[i].Token)
			i++
		}
		entities = append(entities, pipeline.Entity{
			Text:     strings.Join(words, " "),
			Label:    label,
			StartIdx: start,
			EndIdx:   i,
		})
	}
	return entities
}

// MatchEntitiesWithTokens resolves the token-index span of each
// caller-supplied entity (Text/Label known, indices unknown) by locating
// its whitespace-joined text as a contiguous run within tokens. Entities
// whose text cannot be found are dropped.
func MatchEntitiesWithTokens(tokens []string, entities []pipeline.Entity) []pipeline.Entity {
	out := make([]pipeline.Entity, 0, len(entities))
	for _, e := range entities {
		needle := strings.Fields(e.Text)
		if len(needle) == 0 {
			continue
		}
		start, end, ok := findSubsequence(tokens, needle)
		if !ok {
			continue
		}
		out = append(out, pipeline.Entity{
			Text:     e.Text,
			Label:    e.Label,
			StartIdx: start,
			EndIdx:   end,
		})
	}
	return out
}

func findSubsequence(tokens, needle []string) (start, end int, ok bool) {
	for i := 0; i+len(needle) <= len(tokens); i++ {
		match := true
		for j, w := range needle {
			if !strings.EqualFold(tokens[i+j], w) {
				match = false
				break
			}
		}
		if match {
			return i, i + len(needle), true
		}
	}
	return 0, 0, false
}
