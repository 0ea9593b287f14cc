package cli

import (
	"fmt"

	"github.com/qwant1k/rag/internal/adapters/driven/config/file"
	"github.com/qwant1k/rag/internal/adapters/driven/embedding/ollama"
	"github.com/qwant1k/rag/internal/adapters/driven/embedding/openai"
	"github.com/qwant1k/rag/internal/adapters/driven/llm/groq"
	"github.com/qwant1k/rag/internal/adapters/driven/storage/sqlite"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/core/services"
	"github.com/qwant1k/rag/internal/logger"
	"github.com/qwant1k/rag/internal/normalisers"
	"github.com/qwant1k/rag/internal/postprocessors"
	"github.com/qwant1k/rag/internal/postprocessors/chunker"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg      file.Config
	index    *services.IndexProvider
	ingestor *services.IngestService
	chat     *services.ChatService
	watcher  *services.WatchService
}

// buildApp loads configuration and wires the service graph.
// The vector store is opened lazily on first index access.
func buildApp() (*app, error) {
	cfg, err := file.Load(configPath)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	index := services.NewIndexProvider(func() (*services.Handle, error) {
		store, err := sqlite.NewStore(cfg.Index.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		return &services.Handle{Embedder: embedder, Store: store}, nil
	})

	registry := normalisers.NewDefaultRegistry()
	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	))

	ingestor := services.NewIngestService(cfg.Documents.Dir, registry, pipeline, index)
	watcher := services.NewWatchService(cfg.Documents.Dir, cfg.Watcher.Debounce(), ingestor, registry)

	llm, err := groq.NewLLMService(groq.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}

	chat := services.NewChatService(index, llm, services.ChatConfig{
		TopK:           cfg.Retrieval.TopK,
		HistoryWindow:  cfg.Retrieval.HistoryWindow,
		QueryUserTurns: cfg.Retrieval.QueryUserTurns,
		SnippetLength:  cfg.Retrieval.SnippetLength,
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    cfg.LLM.Temperature,
	})

	return &app{
		cfg:      cfg,
		index:    index,
		ingestor: ingestor,
		chat:     chat,
		watcher:  watcher,
	}, nil
}

// buildEmbedder constructs the configured embedding backend.
func buildEmbedder(cfg file.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Kind {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding kind %q", cfg.Embedding.Kind)
	}
}

// Close releases the vector store if it was opened.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		logger.Warn("Closing index: %v", err)
	}
}
