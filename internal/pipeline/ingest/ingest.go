// Package ingest turns raw CollectedBytes into decoded IngestedTokens
// ready for the extraction stage.
package ingest

import (
	"context"
	"unicode/utf8"

	"github.com/querent-ai/querent-go/internal/extraction/segment"
	"github.com/querent-ai/querent-go/internal/pipeline"
)

// Processor decodes a batch of CollectedBytes sharing one logical file
// into a stream of IngestedTokens, terminated by an EOF marker.
type Processor interface {
	Ingest(ctx context.Context, chunks []pipeline.CollectedBytes) (<-chan pipeline.IngestedTokens, error)
}

// TextProcessor concatenates every chunk belonging to the same file,
// decodes the result as UTF-8 text, cleans it, and emits one content
// token followed by an EOF marker. Chunks that fail to decode as valid
// UTF-8 emit only the EOF marker: there is no content worth extracting
// from.
type TextProcessor struct{}

// NewTextProcessor builds a TextProcessor.
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Ingest(ctx context.Context, chunks []pipeline.CollectedBytes) (<-chan pipeline.IngestedTokens, error) {
	out := make(chan pipeline.IngestedTokens, 2)

	go func() {
		defer close(out)

		var buf []byte
		var file, docSource, sourceID string
		for _, c := range chunks {
			if file == "" {
				file = c.File
			}
			if docSource == "" {
				docSource = c.DocSource
			}
			if sourceID == "" {
				sourceID = c.SourceID
			}
			buf = append(buf, c.Data...)
		}

		eof := pipeline.IngestedTokens{File: file, DocSource: docSource, SourceID: sourceID, IsEof: true}

		if !utf8.Valid(buf) {
			select {
			case <-ctx.Done():
			case out <- eof:
			}
			return
		}

		content := segment.RemoveNewlines(string(buf))
		tokens := pipeline.IngestedTokens{
			File:      file,
			DocSource: docSource,
			SourceID:  sourceID,
			Data:      []string{content},
		}

		select {
		case <-ctx.Done():
			return
		case out <- tokens:
		}
		select {
		case <-ctx.Done():
		case out <- eof:
		}
	}()

	return out, nil
}
