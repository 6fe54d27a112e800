package model

import (
	"context"
	"strings"
	"sync"
)

// WhitespaceModel is a reference Tokenizer/AttentionModel that splits on
// whitespace and builds its vocabulary on demand, sufficient to drive the
// extraction pipeline's tests without a real transformer backend. It is
// not meant to produce linguistically meaningful attention — just a
// deterministic, distance-decaying matrix shaped like a real one.
type WhitespaceModel struct {
	maxTokens int

	mu       sync.Mutex
	wordToID map[string]int
	idToWord []string
}

// NewWhitespaceModel creates a tokenizer/attention reference model
// chunking input at maxTokens characters per the extraction pipeline's
// chunking contract.
func NewWhitespaceModel(maxTokens int) *WhitespaceModel {
	return &WhitespaceModel{
		maxTokens: maxTokens,
		wordToID:  make(map[string]int),
	}
}

func (m *WhitespaceModel) MaxTokens() int { return m.maxTokens }

func (m *WhitespaceModel) Tokenize(ctx context.Context, text string) ([]int, error) {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range words {
		id, ok := m.wordToID[w]
		if !ok {
			id = len(m.idToWord)
			m.wordToID[w] = id
			m.idToWord = append(m.idToWord, w)
		}
		ids[i] = id
	}
	return ids, nil
}

func (m *WhitespaceModel) TokensToWords(ctx context.Context, tokenIDs []int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	words := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		if id >= 0 && id < len(m.idToWord) {
			words[i] = m.idToWord[id]
		}
	}
	return words, nil
}

// InferenceAttention returns a deterministic, distance-decaying,
// row-normalized attention matrix over a synthetic [CLS]+tokens+[SEP]
// sequence, sized len(tokenIDs)+2. Index 0 and the last index are the
// [CLS]/[SEP] sentinel rows/columns; callers (internal/extraction.
// AddAttention) are responsible for stripping them before indexing by
// content-token position.
func (m *WhitespaceModel) InferenceAttention(ctx context.Context, tokenIDs []int) ([][]float32, error) {
	n := len(tokenIDs) + 2
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		row := make([]float32, n)
		var sum float32
		for j := 0; j < n; j++ {
			d := i - j
			if d < 0 {
				d = -d
			}
			v := 1.0 / float32(1+d)
			row[j] = v
			sum += v
		}
		if sum > 0 {
			for j := range row {
				row[j] /= sum
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// HashEmbedder produces a small deterministic embedding from a text's
// bytes, standing in for a real sentence-embedding model in tests.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder { return &HashEmbedder{dims: dims} }

func (e *HashEmbedder) Dims() int { return e.dims }

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	if len(text) == 0 {
		return v, nil
	}
	for i, b := range []byte(text) {
		v[i%e.dims] += float32(b%31) / 31.0
	}
	return v, nil
}

// SimpleNER is a reference NERModel driven by a fixed word->label map;
// anything absent from the map classifies as "O".
type SimpleNER struct {
	*WhitespaceModel
	Labels map[string]string
}

func NewSimpleNER(maxTokens int, labels map[string]string) *SimpleNER {
	return &SimpleNER{WhitespaceModel: NewWhitespaceModel(maxTokens), Labels: labels}
}

func (n *SimpleNER) TokenClassification(ctx context.Context, tokenIDs []int) ([]LabeledToken, error) {
	words, err := n.TokensToWords(ctx, tokenIDs)
	if err != nil {
		return nil, err
	}
	out := make([]LabeledToken, len(words))
	for i, w := range words {
		label, ok := n.Labels[strings.ToLower(w)]
		if !ok {
			label = "O"
		}
		out[i] = LabeledToken{Token: w, Label: label}
	}
	return out, nil
}
