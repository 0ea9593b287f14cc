package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChunkIDPrefixLen bounds how much chunk content feeds the identity hash.
// Hashing a prefix keeps identity cheap on large chunks while still
// discriminating distinct chunks at the same (source, page, position).
const ChunkIDPrefixLen = 100

// Document is one parsed file from the documents directory.
// Source is the path relative to the configured root and acts as the
// stable identity key for all chunks derived from the file.
type Document struct {
	// Source is the relative path identifying the document.
	Source string

	// Pages holds the extracted text per page. Flat formats (TXT, DOCX)
	// produce a single page numbered 1.
	Pages []Page

	// IngestedAt is when this parse happened.
	IngestedAt time.Time
}

// Page is one unit of extracted text with its 1-based page number.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded span of normalised document text stored as one
// retrievable unit in the vector index.
type Chunk struct {
	// ID is the content-addressed identifier, see ChunkID.
	ID string

	// Source is the relative path of the parent document.
	Source string

	// Page is the 1-based page the chunk was extracted from.
	Page int

	// Position is the ordinal of the chunk within the whole document's
	// split sequence (not per page).
	Position int

	// Content is the normalised chunk text.
	Content string

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// UploadedAt is when the chunk was written to the index.
	UploadedAt time.Time
}

// ChunkID derives the identifier for a chunk. It is a deterministic
// function of (source, page, position, content prefix): re-splitting the
// same document into the same chunk sequence always yields the same
// identifier sequence, which makes re-ingestion idempotent.
func ChunkID(source string, page, position int, content string) string {
	prefix := []rune(content)
	if len(prefix) > ChunkIDPrefixLen {
		prefix = prefix[:ChunkIDPrefixLen]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d_%d_%s", source, page, position, string(prefix))))
	return hex.EncodeToString(sum[:])
}

// DocumentInfo summarises one indexed document for listing.
type DocumentInfo struct {
	// Filename is the document's Source.
	Filename string `json:"filename"`

	// ChunkCount is the number of index entries for this source.
	ChunkCount int `json:"chunks_count"`

	// Pages lists the distinct page numbers present, ascending.
	Pages []int `json:"pages"`

	// UploadDate is when the document was last ingested.
	UploadDate time.Time `json:"upload_date"`
}
