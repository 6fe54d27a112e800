// Package extraction implements the attention-based relation extraction
// algorithm: text cleanup and chunking, entity labeling, binary pair
// construction, beam-search predicate discovery, relation selection and
// merging, and graph/vector event emission.
package extraction

import (
	"context"
	"time"

	"github.com/querent-ai/querent-go/internal/extraction/segment"
	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// Extractor bundles the pluggable models and tuning knobs the extraction
// algorithm runs against.
type Extractor struct {
	Attention model.AttentionModel
	NER       model.NERModel
	Embedder  model.Embedder

	BeamWidth int
	BeamDepth int
}

// New builds an Extractor with the given attention and embedding models
// and default beam dimensions. ner may be nil when every call supplies a
// fixed entity list.
func New(attn model.AttentionModel, ner model.NERModel, embedder model.Embedder) *Extractor {
	return &Extractor{
		Attention: attn,
		NER:       ner,
		Embedder:  embedder,
		BeamWidth: 5,
		BeamDepth: 5,
	}
}

// ExtractFromText runs the full pipeline over one logical document's text:
// cleanup, chunking to the attention model's token budget, per-chunk
// classification, pairing, relation extraction, merging, and event
// emission. fixedEntities, when non-empty, is matched into every sentence
// instead of relying on NER.
func (e *Extractor) ExtractFromText(ctx context.Context, text, docID, sourceID, imageID string, fixedEntities []pipeline.Entity, now time.Time) ([]pipeline.EventState, error) {
	_, end := startStage(ctx, "extraction.chunk")
	cleaned := segment.RemoveNewlines(text)
	chunks := segment.SplitIntoChunks(e.Attention.MaxTokens(), cleaned)
	end()

	var allEvents []pipeline.EventState
	for _, chunk := range chunks {
		events, err := e.ExtractFromChunk(ctx, chunk, docID, sourceID, imageID, fixedEntities, now)
		if err != nil {
			return nil, err
		}
		allEvents = append(allEvents, events...)
	}
	return allEvents, nil
}

// ExtractFromChunk runs the per-chunk part of the algorithm over one
// already-chunked piece of text: sentence splitting, entity labeling,
// pairing, beam-search predicate extraction, highest-score selection,
// cross-pair merging, and event emission.
func (e *Extractor) ExtractFromChunk(ctx context.Context, chunk, docID, sourceID, imageID string, fixedEntities []pipeline.Entity, now time.Time) ([]pipeline.EventState, error) {
	sentences := segment.SplitIntoSentences(chunk)

	classifyCtx, endClassify := startStage(ctx, "extraction.classify")
	classified, err := LabelEntitiesInSentences(classifyCtx, e.Attention, e.NER, sentences, fixedEntities)
	endClassify()
	if err != nil {
		return nil, err
	}
	if len(classified) == 0 {
		return nil, nil
	}

	withRelations := make([]pipeline.ClassifiedSentenceWithRelations, 0, len(classified))
	attentions := make([]pipeline.AttentionMatrix, 0, len(classified))

	for _, cs := range classified {
		attendCtx, endAttend := startStage(ctx, "extraction.attend")
		ids, err := e.Attention.Tokenize(attendCtx, cs.Sentence)
		if err != nil {
			endAttend()
			return nil, err
		}
		attn, err := AddAttention(attendCtx, e.Attention, ids)
		endAttend()
		if err != nil {
			return nil, err
		}

		_, endPair := startStage(ctx, "extraction.pair")
		pairs := CreateBinaryPairs(cs)
		endPair()

		byPair := make([]pipeline.HeadTailRelations, 0, len(pairs))
		for _, pair := range pairs {
			_, endSearch := startStage(ctx, "extraction.search_select")
			candidates := ExtractPredicateCandidates(attn, cs.Tokens, pair, e.beamWidth(), e.beamDepth())
			candidates = IndividualFilter(candidates)
			best, ok := SelectHighestScoreRelation(candidates)
			endSearch()
			if !ok {
				continue
			}
			byPair = append(byPair, pipeline.HeadTailRelations{
				Pair:      pair,
				Relations: []pipeline.PredicateScore{best},
			})
		}

		_, endMerge := startStage(ctx, "extraction.merge")
		merged := MergeSimilarRelations(byPair)
		endMerge()
		if len(merged) == 0 {
			continue
		}
		withRelations = append(withRelations, pipeline.ClassifiedSentenceWithRelations{
			Sentence:  cs,
			Relations: merged,
		})
		attentions = append(attentions, attn)
	}

	emitCtx, endEmit := startStage(ctx, "extraction.emit")
	defer endEmit()
	return EmitEvents(emitCtx, e.Embedder, docID, sourceID, imageID, withRelations, attentions, now)
}

func (e *Extractor) beamWidth() int {
	if e.BeamWidth > 0 {
		return e.BeamWidth
	}
	return 5
}

func (e *Extractor) beamDepth() int {
	if e.BeamDepth > 0 {
		return e.BeamDepth
	}
	return 5
}
