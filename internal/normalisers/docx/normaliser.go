// Package docx normalises Word documents in the OOXML format.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/normalisers/textnorm"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Normalise converts a DOCX document to a single-page document. DOCX
// has no fixed pagination, so all extracted text lands on page 1.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive", domain.ErrInvalidInput)
	}

	content, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}

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

// extractDocumentText extracts text from word/document.xml.
func extractDocumentText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: cannot open document.xml", domain.ErrInvalidInput)
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: cannot read document.xml", domain.ErrInvalidInput)
		}

		return parseDocumentXML(content), nil
	}
	return "", fmt.Errorf("%w: missing word/document.xml", domain.ErrInvalidInput)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type table struct {
	Rows []tableRow `xml:"tr"`
}

type tableRow struct {
	Cells []tableCell `xml:"tc"`
}

type tableCell struct {
	Paragraphs []paragraph `xml:"p"`
}

// parseDocumentXML extracts text content from the document XML.
// Body paragraphs come first, then tables as one line per row with
// cells joined by " | ".
func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(paragraphText(para))
	}

	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for j, para := range cell.Paragraphs {
					if j > 0 {
						cellText.WriteString(" ")
					}
					cellText.WriteString(paragraphText(para))
				}
				cells = append(cells, strings.TrimSpace(cellText.String()))
			}
			line := strings.TrimSpace(strings.Join(cells, " | "))
			if line == "" {
				continue
			}
			if result.Len() > 0 {
				result.WriteString("\n")
			}
			result.WriteString(line)
		}
	}

	return strings.TrimSpace(result.String())
}

func paragraphText(para paragraph) string {
	var sb strings.Builder
	for _, r := range para.Runs {
		for _, text := range r.Text {
			sb.WriteString(text.Content)
		}
	}
	return sb.String()
}
