// Package postprocessors turns normalised documents into index-ready chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
)

// Pipeline runs a chain of PostProcessors in order. The first processor
// receives nil chunks and is expected to create them; later processors
// receive and may rewrite the chunk list.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline running the given processors in order.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs the document through the chain and returns the final
// chunk list. A failing processor aborts the chain.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}
	return chunks, nil
}

// Add appends a processor to the end of the chain.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the chain.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
