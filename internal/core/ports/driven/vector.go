package driven

import (
	"context"

	"github.com/qwant1k/rag/internal/core/domain"
)

// VectorStore persists chunks with their embeddings and provides
// similarity search. Entries are keyed by chunk identifier and
// partitioned logically by the Source metadata field.
//
// Implementations are not required to be safe under concurrent writers;
// callers serialise all mutating operations behind the index lock.
type VectorStore interface {
	// Upsert inserts or replaces chunks by their identifiers as one batch.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// DeleteBySource removes every entry whose source matches.
	// Returns the number of entries removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Search finds the k most similar chunks to the query embedding,
	// ranked by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// ListSources summarises the indexed documents, one entry per source.
	ListSources(ctx context.Context) ([]domain.DocumentInfo, error)

	// Count returns the total number of index entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk with its metadata and text.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
