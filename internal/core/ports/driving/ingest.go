package driving

import (
	"context"

	"github.com/qwant1k/rag/internal/core/domain"
)

// Ingestor synchronises the vector index with files on disk.
type Ingestor interface {
	// IngestFile parses, chunks, embeds and indexes one file, replacing
	// any prior entries for the same source. Returns the number of
	// chunks added. An unsupported extension returns (0, nil); parse
	// and index failures are surfaced to the caller.
	IngestFile(ctx context.Context, path string) (int, error)

	// IngestAll reindexes every supported file under the documents
	// root, isolating per-file failures: a corrupt file reports zero
	// chunks and the batch continues. The result maps source to the
	// number of chunks added.
	IngestAll(ctx context.Context) (map[string]int, error)

	// DeleteSource removes all index entries for the named source.
	// Returns the number of entries removed.
	DeleteSource(ctx context.Context, source string) (int, error)

	// ListDocuments summarises the indexed documents.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}
