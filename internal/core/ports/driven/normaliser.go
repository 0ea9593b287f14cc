package driven

import (
	"context"

	"github.com/qwant1k/rag/internal/core/domain"
)

// Normaliser transforms raw file bytes into extracted, cleaned page text.
// Each normaliser handles specific file extensions.
type Normaliser interface {
	// Extensions returns the lower-case file extensions this normaliser
	// handles, including the leading dot (e.g. ".pdf").
	Extensions() []string

	// Normalise parses a raw document into per-page text. A document
	// that parses but contains no usable text yields zero pages, which
	// is not an error.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the parsed document with Pages populated.
	Document domain.Document
}

// NormaliserRegistry selects a normaliser by file extension.
type NormaliserRegistry interface {
	// Supported reports whether any registered normaliser handles ext.
	Supported(ext string) bool

	// Normalise dispatches to the normaliser for the raw document's
	// extension. Returns domain.ErrUnsupportedType when none is registered.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}
