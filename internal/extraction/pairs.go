package extraction

import (
	"sort"
	"strings"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

// maxPairTokenDistance bounds how far apart two entities may sit (in token
// positions) and still be considered for a relation. The source material
// expresses this bound in character distance; token index stands in for it
// here since spans are tracked in token space throughout this package.
const maxPairTokenDistance = 25

// CreateBinaryPairs sorts a sentence's entities by start index and admits
// one pair per qualifying unordered combination, head always the
// earlier-starting entity.
func CreateBinaryPairs(cs pipeline.ClassifiedSentence) []pipeline.EntityPair {
	entities := make([]pipeline.Entity, len(cs.Entities))
	copy(entities, cs.Entities)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].StartIdx < entities[j].StartIdx
	})

	var pairs []pipeline.EntityPair
	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]
			if !qualifies(a, b) {
				continue
			}
			pairs = append(pairs, pipeline.EntityPair{
				Head:    a,
				Tail:    b,
				Context: cs.Sentence,
			})
		}
	}
	return pairs
}

// qualifies reports whether a and b form a usable entity pair: distinct
// text, neither unlabeled, non-overlapping spans, and close enough together
// to plausibly share a predicate.
func qualifies(a, b pipeline.Entity) bool {
	if strings.EqualFold(a.Text, b.Text) {
		return false
	}
	if strings.EqualFold(a.Label, "UNK") || strings.EqualFold(b.Label, "UNK") {
		return false
	}
	if a.StartIdx < b.EndIdx && b.StartIdx < a.EndIdx {
		return false
	}
	return tokenDistance(a, b) <= maxPairTokenDistance
}

func tokenDistance(a, b pipeline.Entity) int {
	var d int
	if a.EndIdx <= b.StartIdx {
		d = b.StartIdx - a.EndIdx
	} else {
		d = a.StartIdx - b.EndIdx
	}
	if d < 0 {
		return 0
	}
	return d
}
