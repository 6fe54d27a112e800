// Package beam implements the width- and depth-bounded beam search used to
// walk an attention matrix from the tokens bordering an entity pair toward
// a candidate predicate phrase, scoring each path by the attention weight
// it accumulates.
package beam

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultWidth and DefaultDepth are the beam dimensions used when a caller
// does not override them: keep the 5 best partial paths, extend them at
// most 5 tokens deep.
const (
	DefaultWidth = 5
	DefaultDepth = 5
)

// Candidate is one path discovered by Search: a sequence of token indices
// and the cumulative attention score of the edges walked to reach it.
type Candidate struct {
	Indices []int
	Score   float32
}

// Search explores attention, starting a beam from each index in starts,
// extending every live path by each unvisited, non-excluded neighbor
// reached over an edge of positive weight, keeping only the top width
// paths by cumulative score between steps. exclude marks token indices
// that may never be entered (typically the entity pair's own spans).
//
// A path that cannot be extended (every neighbor visited or excluded, or
// every edge weight is zero) survives unchanged to the next round rather
// than being dropped, so short genuine predicates are not penalized for
// terminating early.
func Search(attention [][]float32, starts []int, exclude map[int]bool, width, depth int) []Candidate {
	if width <= 0 {
		width = DefaultWidth
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	n := len(attention)
	if n == 0 {
		return nil
	}

	beam := make([]Candidate, 0, len(starts))
	for _, s := range starts {
		if s < 0 || s >= n || exclude[s] {
			continue
		}
		beam = append(beam, Candidate{Indices: []int{s}, Score: 0})
	}
	if len(beam) == 0 {
		return nil
	}

	for step := 0; step < depth; step++ {
		var next []Candidate
		for _, c := range beam {
			last := c.Indices[len(c.Indices)-1]
			if last < 0 || last >= len(attention) {
				next = append(next, c)
				continue
			}
			extended := false
			row := attention[last]
			for j := 0; j < len(row) && j < n; j++ {
				if exclude[j] || contains(c.Indices, j) {
					continue
				}
				w := row[j]
				if w <= 0 {
					continue
				}
				indices := make([]int, len(c.Indices)+1)
				copy(indices, c.Indices)
				indices[len(c.Indices)] = j
				next = append(next, Candidate{Indices: indices, Score: c.Score + w})
				extended = true
			}
			if !extended {
				next = append(next, c)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.SliceStable(next, func(i, j int) bool { return next[i].Score > next[j].Score })
		next = dedupe(next)
		if len(next) > width {
			next = next[:width]
		}
		beam = next
	}
	return beam
}

func contains(indices []int, v int) bool {
	for _, i := range indices {
		if i == v {
			return true
		}
	}
	return false
}

func dedupe(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := keyOf(c.Indices)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func keyOf(indices []int) string {
	var b strings.Builder
	for _, i := range indices {
		fmt.Fprintf(&b, "%d,", i)
	}
	return b.String()
}
