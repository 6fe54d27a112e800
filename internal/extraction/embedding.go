package extraction

import (
	"context"
	"math"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// BiasedSentenceEmbedding biases a sentence embedding toward the entity
// pair and predicate it is reporting a relation for: b = e_s + alpha_h*e_h
// + alpha_t*e_t + score*e_p, where alpha_h/alpha_t are the mean attention
// mass the whole matrix assigns to the head/tail token span (the row-mean
// of the attention columns spanning that span, averaged again over every
// row), then the result is unit-L2-normalized so downstream cosine search
// behaves consistently regardless of the embedder's own output scale.
func BiasedSentenceEmbedding(ctx context.Context, embedder model.Embedder, sentence string, pair pipeline.EntityPair, predicate string, score float32, attn pipeline.AttentionMatrix) ([]float32, error) {
	base, err := embedder.Embed(ctx, sentence)
	if err != nil {
		return nil, err
	}
	headVec, err := embedder.Embed(ctx, pair.Head.Text)
	if err != nil {
		return nil, err
	}
	tailVec, err := embedder.Embed(ctx, pair.Tail.Text)
	if err != nil {
		return nil, err
	}
	predVec, err := embedder.Embed(ctx, predicate)
	if err != nil {
		return nil, err
	}

	alphaHead := spanAttentionScore(attn, pair.Head.StartIdx, pair.Head.EndIdx)
	alphaTail := spanAttentionScore(attn, pair.Tail.StartIdx, pair.Tail.EndIdx)

	dims := embedder.Dims()
	out := make([]float32, dims)
	for d := 0; d < dims; d++ {
		var baseVal, headVal, tailVal, predVal float32
		if d < len(base) {
			baseVal = base[d]
		}
		if d < len(headVec) {
			headVal = headVec[d]
		}
		if d < len(tailVec) {
			tailVal = tailVec[d]
		}
		if d < len(predVec) {
			predVal = predVec[d]
		}
		out[d] = baseVal + alphaHead*headVal + alphaTail*tailVal + score*predVal
	}
	return normalizeL2(out), nil
}

// spanAttentionScore is the mean, over every row of attn, of that row's
// mean attention weight across the [startIdx, endIdx) column span. Returns
// 0 when the matrix is empty or the span is empty.
func spanAttentionScore(attn pipeline.AttentionMatrix, startIdx, endIdx int) float32 {
	rows := attn.Rows
	if len(rows) == 0 || endIdx <= startIdx {
		return 0
	}
	var total float32
	for _, row := range rows {
		var sum float32
		var n int
		for idx := startIdx; idx < endIdx; idx++ {
			if idx < 0 || idx >= len(row) {
				continue
			}
			sum += row[idx]
			n++
		}
		if n > 0 {
			total += sum / float32(n)
		}
	}
	return total / float32(len(rows))
}

func normalizeL2(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
