package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
)

// mockEmbedder produces deterministic vectors from text length.
type mockEmbedder struct {
	mu        sync.Mutex
	embedErr  error
	batchSize []int
}

func (m *mockEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	m.batchSize = append(m.batchSize, len(texts))
	m.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vector(text)
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int            { return 2 }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// memStore is an in-memory VectorStore.
type memStore struct {
	mu     sync.Mutex
	chunks map[string]domain.Chunk
	closed bool

	upsertErr error
	deleteErr error
}

var _ driven.VectorStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{chunks: make(map[string]domain.Chunk)}
}

func (m *memStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *memStore) DeleteBySource(_ context.Context, source string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, chunk := range m.chunks {
		if chunk.Source == source {
			delete(m.chunks, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memStore) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hits := make([]driven.VectorHit, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		hits = append(hits, driven.VectorHit{Chunk: chunk, Similarity: 1})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Chunk.Source != hits[j].Chunk.Source {
			return hits[i].Chunk.Source < hits[j].Chunk.Source
		}
		return hits[i].Chunk.Position < hits[j].Chunk.Position
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memStore) ListSources(_ context.Context) ([]domain.DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bySource := make(map[string]*domain.DocumentInfo)
	for _, chunk := range m.chunks {
		info, ok := bySource[chunk.Source]
		if !ok {
			info = &domain.DocumentInfo{Filename: chunk.Source}
			bySource[chunk.Source] = info
		}
		info.ChunkCount++
		if chunk.UploadedAt.After(info.UploadDate) {
			info.UploadDate = chunk.UploadedAt
		}
	}

	infos := make([]domain.DocumentInfo, 0, len(bySource))
	for _, info := range bySource {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

func (m *memStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks), nil
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// countBySource counts live entries for a source.
func (m *memStore) countBySource(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, chunk := range m.chunks {
		if chunk.Source == source {
			n++
		}
	}
	return n
}

// mockLLM replays canned replies.
type mockLLM struct {
	reply     string
	tokens    []string
	chatErr   error
	streamErr error

	mu       sync.Mutex
	messages []domain.ChatMessage
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Chat(_ context.Context, messages []domain.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.messages = messages
	m.mu.Unlock()
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLM) ChatStream(_ context.Context, messages []domain.ChatMessage, _ driven.ChatOptions) (<-chan driven.StreamChunk, error) {
	m.mu.Lock()
	m.messages = messages
	m.mu.Unlock()
	if m.chatErr != nil {
		return nil, m.chatErr
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		for _, token := range m.tokens {
			out <- driven.StreamChunk{Content: token}
		}
		if m.streamErr != nil {
			out <- driven.StreamChunk{Err: m.streamErr}
		}
	}()
	return out, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) lastMessages() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages
}

// mockIngestor records ingest and delete calls for watcher tests.
type mockIngestor struct {
	mu      sync.Mutex
	ingests []string
	deletes []string
}

func (m *mockIngestor) IngestFile(_ context.Context, path string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingests = append(m.ingests, path)
	return 1, nil
}

func (m *mockIngestor) IngestAll(context.Context) (map[string]int, error) {
	return nil, fmt.Errorf("not used")
}

func (m *mockIngestor) DeleteSource(_ context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, source)
	return 1, nil
}

func (m *mockIngestor) ListDocuments(context.Context) ([]domain.DocumentInfo, error) {
	return nil, nil
}

func (m *mockIngestor) ingested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingests...)
}

func (m *mockIngestor) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletes...)
}
