package extraction

import (
	"context"
	"time"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// EmitEvents turns a chunk's classified-and-related sentences into the
// Graph/Vector event pairs the sinks persist. attentions holds the
// per-sentence attention matrix produced earlier in the pipeline, aligned
// by index with sentences; a missing or short attentions slice falls back
// to a zero head/tail attention bias in BiasedSentenceEmbedding. For every
// pair that still carries a resolved relation, the Graph event is appended
// before its matching Vector event, preserving the invariant that a vector
// row is never written before the graph row it annotates.
func EmitEvents(ctx context.Context, embedder model.Embedder, docID, sourceID, imageID string, sentences []pipeline.ClassifiedSentenceWithRelations, attentions []pipeline.AttentionMatrix, now time.Time) ([]pipeline.EventState, error) {
	var events []pipeline.EventState
	ts := float64(now.Unix())

	for i, s := range sentences {
		var attn pipeline.AttentionMatrix
		if i < len(attentions) {
			attn = attentions[i]
		}
		for _, rel := range s.Relations {
			if len(rel.Relations) == 0 {
				continue
			}
			top := rel.Relations[0]
			eventID := NewEventID(now)

			graph := pipeline.GraphPayload{
				EventID:       eventID,
				DocumentID:    docID,
				Subject:       rel.Pair.Head.Text,
				SubjectType:   rel.Pair.Head.Label,
				Predicate:     top.Predicate,
				PredicateType: "relation",
				Object:        rel.Pair.Tail.Text,
				ObjectType:    rel.Pair.Tail.Label,
				Sentence:      s.Sentence.Sentence,
				SourceID:      sourceID,
				ImageID:       imageID,
			}
			events = append(events, pipeline.EventState{
				Kind:      pipeline.EventGraph,
				ImageID:   imageID,
				Timestamp: ts,
				Graph:     &graph,
			})

			embedding, err := BiasedSentenceEmbedding(ctx, embedder, s.Sentence.Sentence, rel.Pair, top.Predicate, top.Score, attn)
			if err != nil {
				return nil, err
			}
			vector := pipeline.VectorPayload{
				EventID:    eventID,
				Embeddings: embedding,
				Score:      top.Score,
			}
			events = append(events, pipeline.EventState{
				Kind:      pipeline.EventVector,
				ImageID:   imageID,
				Timestamp: ts,
				Vector:    &vector,
			})
		}
	}
	return events, nil
}
