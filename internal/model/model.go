// Package model defines the pluggable model interfaces the extraction
// pipeline's attention-based relation extractor depends on (tokenizer,
// attention-capable transformer, embedder, NER model), mirroring the shape
// of the teacher's gRPC `mlpb.EmbedServiceClient` and the original Rust
// `LLM` trait's method surface. Concrete transformer backends are out of
// scope; this package also ships minimal in-memory reference
// implementations sufficient to exercise and test the pipeline.
package model

import "context"

// Tokenizer turns text into the model's token id sequence and back into
// whitespace-joinable words (used to align entity spans to token indices).
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]int, error)
	TokensToWords(ctx context.Context, tokenIDs []int) ([]string, error)
	MaxTokens() int
}

// AttentionModel additionally exposes the last-layer, head-averaged
// attention matrix for a token sequence, including the [CLS]/[SEP]
// boundary rows/columns the extractor is responsible for stripping.
type AttentionModel interface {
	Tokenizer
	InferenceAttention(ctx context.Context, tokenIDs []int) ([][]float32, error)
}

// Embedder produces a single dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// LabeledToken is one token classification result; Label is "O" for
// tokens outside any entity span.
type LabeledToken struct {
	Token string
	Label string
}

// NERModel performs token classification for automatic entity discovery,
// used when the extractor is given no fixed entity list.
type NERModel interface {
	Tokenizer
	TokenClassification(ctx context.Context, tokenIDs []int) ([]LabeledToken, error)
}
