package extraction

import (
	"context"

	"github.com/querent-ai/querent-go/internal/model"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// AddAttention runs step 6 of the algorithm: tokenIDs are fed through the
// attention model, whose InferenceAttention returns the head-averaged,
// last-layer attention matrix over the model's own [CLS]+tokens+[SEP]
// sequence, sized len(tokenIDs)+2. The [CLS]/[SEP] boundary row and column
// are stripped so the result is a (T,T) matrix indexed by content-token
// position, matching cs.Tokens / entity StartIdx/EndIdx.
func AddAttention(ctx context.Context, attn model.AttentionModel, tokenIDs []int) (pipeline.AttentionMatrix, error) {
	rows, err := attn.InferenceAttention(ctx, tokenIDs)
	if err != nil {
		return pipeline.AttentionMatrix{}, err
	}
	return pipeline.AttentionMatrix{Rows: stripBoundary(rows)}, nil
}

// stripBoundary removes the first and last row, and the first and last
// column of every remaining row, from a [CLS]/[SEP]-bordered matrix.
func stripBoundary(rows [][]float32) [][]float32 {
	if len(rows) <= 2 {
		return nil
	}
	inner := rows[1 : len(rows)-1]
	out := make([][]float32, len(inner))
	for i, row := range inner {
		if len(row) <= 2 {
			continue
		}
		out[i] = row[1 : len(row)-1]
	}
	return out
}
