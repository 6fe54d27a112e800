package extraction

import (
	"sort"
	"strings"

	"github.com/querent-ai/querent-go/internal/extraction/beam"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// ExtractPredicateCandidates walks the attention matrix between a pair's
// head and tail spans with a beam search, translating each surviving path
// of token indices into a joined predicate phrase. The head and tail
// token spans are excluded from the walk so a predicate never folds an
// entity's own tokens back into itself.
func ExtractPredicateCandidates(attn pipeline.AttentionMatrix, tokens []string, pair pipeline.EntityPair, width, depth int) []pipeline.PredicateScore {
	exclude := spanSet(pair.Head.StartIdx, pair.Head.EndIdx)
	for k, v := range spanSet(pair.Tail.StartIdx, pair.Tail.EndIdx) {
		exclude[k] = v
	}

	starts := boundaryStarts(pair, len(tokens))
	if len(starts) == 0 || len(attn.Rows) == 0 {
		return nil
	}

	cands := beam.Search(attn.Rows, starts, exclude, width, depth)
	out := make([]pipeline.PredicateScore, 0, len(cands))
	for _, c := range cands {
		words := make([]string, 0, len(c.Indices))
		for _, idx := range c.Indices {
			if idx >= 0 && idx < len(tokens) {
				words = append(words, tokens[idx])
			}
		}
		predicate := strings.TrimSpace(strings.Join(words, " "))
		if predicate == "" {
			continue
		}
		out = append(out, pipeline.PredicateScore{Predicate: predicate, Score: c.Score})
	}
	return out
}

// minStepScore is the minimum average per-edge attention weight a predicate
// candidate must carry to survive IndividualFilter.
const minStepScore = 0.05

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "of": true, "in": true, "on": true, "to": true, "and": true,
	"that": true, "this": true, "it": true, "as": true, "by": true, "at": true,
	"be": true, "with": true, "for": true, "or": true,
}

// IndividualFilter drops predicate candidates that are weak or uninformative:
// those scoring below the per-step average threshold (a candidate's own
// word count stands in for its beam-search step count, since the
// predicate string is all that survives the conversion from beam
// candidate), those made entirely of stop words, and duplicate candidates
// once reduced to a crude lemma (a surface form stripped of a handful of
// common suffixes). The highest-scoring candidate wins each lemma
// collision.
func IndividualFilter(candidates []pipeline.PredicateScore) []pipeline.PredicateScore {
	bestByLemma := make(map[string]pipeline.PredicateScore)
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		steps := len(strings.Fields(c.Predicate))
		if steps <= 0 {
			steps = 1
		}
		if float32(c.Score)/float32(steps) < minStepScore {
			continue
		}
		if isStopPhrase(c.Predicate) {
			continue
		}
		key := lemmaKey(c.Predicate)
		if existing, ok := bestByLemma[key]; !ok || c.Score > existing.Score {
			if !ok {
				order = append(order, key)
			}
			bestByLemma[key] = c
		}
	}
	out := make([]pipeline.PredicateScore, 0, len(order))
	for _, key := range order {
		out = append(out, bestByLemma[key])
	}
	return out
}

func isStopPhrase(predicate string) bool {
	words := strings.Fields(predicate)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !stopWords[strings.ToLower(w)] {
			return false
		}
	}
	return true
}

func lemmaKey(predicate string) string {
	words := strings.Fields(strings.ToLower(predicate))
	for i, w := range words {
		words[i] = lemma(w)
	}
	return strings.Join(words, " ")
}

func lemma(word string) string {
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if len(word) > len(suffix)+2 && strings.HasSuffix(word, suffix) {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return word
}

func spanSet(start, end int) map[int]bool {
	m := make(map[int]bool, end-start)
	for i := start; i < end; i++ {
		m[i] = true
	}
	return m
}

// boundaryStarts picks the single token immediately after whichever
// entity's span comes first, so the beam search starts from the text
// sitting between subject and object. Overlapping or adjacent spans fall
// back to the token right after the head.
func boundaryStarts(pair pipeline.EntityPair, n int) []int {
	var starts []int
	if pair.Head.EndIdx < pair.Tail.StartIdx {
		if pair.Head.EndIdx < n {
			starts = append(starts, pair.Head.EndIdx)
		}
	} else if pair.Tail.EndIdx < pair.Head.StartIdx {
		if pair.Tail.EndIdx < n {
			starts = append(starts, pair.Tail.EndIdx)
		}
	} else {
		// overlapping or adjacent spans: fall back to right after head.
		if pair.Head.EndIdx < n {
			starts = append(starts, pair.Head.EndIdx)
		}
	}
	return starts
}

// SelectHighestScoreRelation returns the candidate with the highest score,
// keeping the first-seen candidate on an exact tie.
func SelectHighestScoreRelation(candidates []pipeline.PredicateScore) (pipeline.PredicateScore, bool) {
	if len(candidates) == 0 {
		return pipeline.PredicateScore{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

// MergeSimilarRelations folds duplicate relations across every pair in a
// classified sentence: when one pair's sole retained predicate is a
// substring of another's, the shorter is absorbed into the longer and
// their scores are summed. Iterates to a fixed point so transitive
// containment chains (A within B within C) fully collapse. At most one
// predicate survives per surviving pair afterward.
func MergeSimilarRelations(rels []pipeline.HeadTailRelations) []pipeline.HeadTailRelations {
	working := make([]pipeline.HeadTailRelations, len(rels))
	copy(working, rels)

	for {
		merged := false
		for i := 0; i < len(working); i++ {
			pi := solePredicate(working[i])
			if pi == nil {
				continue
			}
			for j := i + 1; j < len(working); j++ {
				pj := solePredicate(working[j])
				if pj == nil {
					continue
				}
				if !similar(pi.Predicate, pj.Predicate) {
					continue
				}
				if len(pj.Predicate) > len(pi.Predicate) {
					working[j].Relations[0].Score += pi.Score
					working[i].Relations = nil
					merged = true
					break
				}
				working[i].Relations[0].Score += pj.Score
				working[j].Relations = nil
				merged = true
			}
		}
		if !merged {
			break
		}
	}

	out := make([]pipeline.HeadTailRelations, 0, len(working))
	for _, r := range working {
		if len(r.Relations) > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relations[0].Score > out[j].Relations[0].Score })
	return out
}

func solePredicate(r pipeline.HeadTailRelations) *pipeline.PredicateScore {
	if len(r.Relations) != 1 {
		return nil
	}
	return &r.Relations[0]
}

func similar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
