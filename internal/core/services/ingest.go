package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/core/ports/driving"
	"github.com/qwant1k/rag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService turns files from the documents directory into index
// entries. Re-ingesting a file replaces its previous entries; the
// delete and the upsert run as one step under the index lock so no
// reader observes a half-replaced document.
type IngestService struct {
	root     string
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	index    *IndexProvider
}

// NewIngestService creates a new ingest service rooted at the
// documents directory.
func NewIngestService(
	root string,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index *IndexProvider,
) *IngestService {
	return &IngestService{
		root:     root,
		registry: registry,
		pipeline: pipeline,
		index:    index,
	}
}

// IngestFile parses, chunks, embeds and indexes one file. Returns the
// number of chunks added. An unsupported extension is skipped with a
// warning, not an error. A parse failure returns an error and leaves
// any previous index entries for the file untouched.
func (s *IngestService) IngestFile(ctx context.Context, path string) (int, error) {
	source, err := s.sourceFor(path)
	if err != nil {
		return 0, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !s.registry.Supported(ext) {
		logger.Warn("Skipping %s: unsupported file type %q", source, ext)
		return 0, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", source, err)
	}

	result, err := s.registry.Normalise(ctx, &domain.RawDocument{
		Path:    path,
		Source:  source,
		Content: content,
	})
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", source, err)
	}

	chunks, err := s.pipeline.Process(ctx, &result.Document)
	if err != nil {
		return 0, fmt.Errorf("chunking %s: %w", source, err)
	}

	// The parse succeeded, so stale entries go even when it produced
	// nothing: a file that became empty must leave the index.
	err = s.index.WithLock(func(h *Handle) error {
		removed, err := h.Store.DeleteBySource(ctx, source)
		if err != nil {
			return fmt.Errorf("deleting stale chunks for %s: %w", source, err)
		}
		if removed > 0 {
			logger.Debug("Replaced %d stale chunks for %s", removed, source)
		}

		if len(chunks) == 0 {
			return nil
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		embeddings, err := h.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", source, err)
		}
		if len(embeddings) != len(chunks) {
			return fmt.Errorf("embedding %s: got %d vectors for %d chunks", source, len(embeddings), len(chunks))
		}

		now := time.Now()
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
			chunks[i].UploadedAt = now
		}

		if err := h.Store.Upsert(ctx, chunks); err != nil {
			return fmt.Errorf("indexing %s: %w", source, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Drop the cached handle so the next reader rebuilds against the
	// replaced state.
	s.index.Reset()

	logger.Info("Indexed %s: %d chunks", source, len(chunks))
	return len(chunks), nil
}

// IngestAll walks the documents directory and ingests every supported
// file. One file's failure never aborts the others; failed files
// report zero chunks.
func (s *IngestService) IngestAll(ctx context.Context) (map[string]int, error) {
	paths, err := s.listFiles()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		source, err := s.sourceFor(path)
		if err != nil {
			logger.Error("Resolving %s: %v", path, err)
			continue
		}

		count, err := s.IngestFile(ctx, path)
		if err != nil {
			logger.Error("Ingesting %s: %v", source, err)
			counts[source] = 0
			continue
		}
		counts[source] = count
	}

	return counts, nil
}

// DeleteSource removes every index entry for a source. Returns the
// number of entries removed.
func (s *IngestService) DeleteSource(ctx context.Context, source string) (int, error) {
	var removed int
	err := s.index.WithLock(func(h *Handle) error {
		var err error
		removed, err = h.Store.DeleteBySource(ctx, source)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting %s: %w", source, err)
	}

	if removed > 0 {
		s.index.Reset()
		logger.Info("Removed %s from index: %d chunks", source, removed)
	}
	return removed, nil
}

// ListDocuments summarises the indexed documents.
func (s *IngestService) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	handle, err := s.index.Handle()
	if err != nil {
		return nil, err
	}
	return handle.Store.ListSources(ctx)
}

// sourceFor converts a path into the source key: the path relative to
// the documents root, with forward slashes.
func (s *IngestService) sourceFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", s.root, err)
	}

	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Outside the root; fall back to the bare filename.
		return filepath.Base(path), nil
	}
	return filepath.ToSlash(rel), nil
}

// listFiles returns the ingestable files under the root, sorted for
// deterministic batch order.
func (s *IngestService) listFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if IgnoredFile(name) {
			return nil
		}
		if !s.registry.Supported(strings.ToLower(filepath.Ext(name))) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// IgnoredFile reports whether a filename is editor noise that must
// never be ingested: dotfiles and Office lock files.
func IgnoredFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}
