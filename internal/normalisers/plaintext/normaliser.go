// Package plaintext normalises plain text files.
package plaintext

import (
	"context"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/normalisers/textnorm"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt"}
}

// Normalise converts a plain text file to a single-page document.
// Content that is not valid UTF-8 is decoded as Windows-1251 before
// cleanup, matching the most common legacy encoding for the corpus.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := decode(raw.Content)
	text := textnorm.CleanText(content)

	doc := domain.Document{
		Source:     raw.Source,
		IngestedAt: time.Now(),
	}
	if text != "" {
		doc.Pages = []domain.Page{{Number: 1, Text: text}}
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// decode converts raw bytes to a string, falling back to Windows-1251
// when the bytes are not valid UTF-8.
func decode(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}
