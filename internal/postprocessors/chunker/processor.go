// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/qwant1k/rag/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 50

// Processor splits document pages into bounded-size chunks. Within the
// size budget it prefers to break at a paragraph boundary, then at a
// sentence boundary, then at a word boundary, and only hard-cuts when
// no boundary exists in the window.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits every page of the document into chunks. Input chunks
// are ignored; this processor creates new chunks from page text.
// Positions are ordinals over the whole document, not per page, so the
// sequence is stable across the page boundary.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	position := 0
	for _, page := range doc.Pages {
		for _, content := range p.split(page.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:       domain.ChunkID(doc.Source, page.Number, position, content),
				Source:   doc.Source,
				Page:     page.Number,
				Position: position,
				Content:  content,
			})
			position++
		}
	}

	return chunks, nil
}

// split cuts a single page's text into chunk contents.
func (p *Processor) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0

	for start < len(runes) {
		end := start + p.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = p.cutPoint(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			parts = append(parts, content)
		}

		if end == len(runes) {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return parts
}

// sentenceEnders are boundaries where a cut keeps the punctuation with
// the preceding chunk.
var sentenceEnders = []string{". ", "! ", "? ", "; ", ": "}

// cutPoint finds the best rune index to cut at within (start, limit].
// Boundaries in the second half of the window are preferred so a chunk
// is never degenerately short when a larger boundary exists further on.
// When the window's only whitespace falls in the first half, that still
// beats cutting mid-token.
func (p *Processor) cutPoint(runes []rune, start, limit int) int {
	minCut := start + p.chunkSize/2

	if idx := lastIndexOf(runes, minCut, limit, "\n\n"); idx >= 0 {
		return idx
	}
	for _, sep := range sentenceEnders {
		if idx := lastIndexOf(runes, minCut, limit, sep); idx >= 0 {
			return idx + 1 // keep the punctuation
		}
	}
	if idx := lastIndexOf(runes, minCut, limit, "\n"); idx >= 0 {
		return idx
	}
	if idx := lastIndexOf(runes, minCut, limit, " "); idx >= 0 {
		return idx
	}

	if idx := lastIndexOf(runes, start+1, limit, "\n"); idx >= 0 {
		return idx
	}
	if idx := lastIndexOf(runes, start+1, limit, " "); idx >= 0 {
		return idx
	}

	return limit
}

// lastIndexOf returns the highest rune index i in [min, limit) at which
// sep begins, with the whole separator fitting before limit, or -1.
// Separators are ASCII so a direct rune comparison is enough.
func lastIndexOf(runes []rune, min, limit int, sep string) int {
	sepRunes := []rune(sep)
	for i := limit - len(sepRunes); i >= min; i-- {
		match := true
		for j, r := range sepRunes {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
