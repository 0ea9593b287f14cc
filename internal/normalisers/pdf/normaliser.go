// Package pdf normalises PDF documents into per-page text.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/normalisers/textnorm"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Normalise extracts text page by page. Pages with no extractable
// text are skipped, so a scanned PDF without a text layer yields zero
// pages rather than an error.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	doc := domain.Document{
		Source:     raw.Source,
		IngestedAt: time.Now(),
	}

	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		raw, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not discard the rest.
			continue
		}

		text := textnorm.CleanText(raw)
		if text == "" {
			continue
		}

		doc.Pages = append(doc.Pages, domain.Page{Number: i, Text: text})
	}

	return &driven.NormaliseResult{Document: doc}, nil
}
