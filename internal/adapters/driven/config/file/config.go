// Package file provides TOML-based application configuration.
package file

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultListenAddr      = ":8000"
	DefaultDocumentsDir    = "./documents"
	DefaultDataDir         = "./data"
	DefaultEmbeddingKind   = "ollama"
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 50
	DefaultTopK            = 5
	DefaultHistoryWindow   = 12
	DefaultQueryUserTurns  = 3
	DefaultSnippetLength   = 150
	DefaultDebounceSeconds = 3
)

// Config is the application configuration, loaded from a TOML file
// with environment overrides for secrets.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Documents DocumentsConfig `toml:"documents"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Watcher   WatcherConfig   `toml:"watcher"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `toml:"listen_addr"`
}

// DocumentsConfig configures the watched documents directory.
type DocumentsConfig struct {
	// Dir is the root of the document tree to index.
	Dir string `toml:"dir"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	// DataDir is where the index database lives.
	DataDir string `toml:"data_dir"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Kind is "ollama" or "openai".
	Kind string `toml:"kind"`

	// BaseURL overrides the backend's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the backend's default model.
	Model string `toml:"model"`

	// APIKey authenticates against the openai backend. Overridden by
	// OPENAI_API_KEY when set.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions"`
}

// LLMConfig configures the chat-completion backend.
type LLMConfig struct {
	// BaseURL overrides the default Groq endpoint. Any
	// OpenAI-compatible API works.
	BaseURL string `toml:"base_url"`

	// Model overrides the default model.
	Model string `toml:"model"`

	// APIKey authenticates the API. Overridden by GROQ_API_KEY when set.
	APIKey string `toml:"api_key"`

	// MaxTokens caps generation length. Zero means backend default.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls sampling randomness.
	Temperature float64 `toml:"temperature"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	// Size is the chunk budget in runes.
	Size int `toml:"size"`

	// Overlap is the number of runes shared between adjacent chunks.
	Overlap int `toml:"overlap"`
}

// RetrievalConfig configures similarity search and prompting.
type RetrievalConfig struct {
	// TopK is how many chunks feed the answer context.
	TopK int `toml:"top_k"`

	// HistoryWindow bounds how many conversation messages reach the LLM.
	HistoryWindow int `toml:"history_window"`

	// QueryUserTurns is how many recent user turns join the retrieval query.
	QueryUserTurns int `toml:"query_user_turns"`

	// SnippetLength bounds the source preview, in runes.
	SnippetLength int `toml:"snippet_length"`
}

// WatcherConfig configures the filesystem watcher.
type WatcherConfig struct {
	// Enabled controls whether the watcher starts with the server.
	Enabled bool `toml:"enabled"`

	// DebounceSeconds is how long a path must stay quiet before its
	// pending event fires.
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:    ServerConfig{ListenAddr: DefaultListenAddr},
		Documents: DocumentsConfig{Dir: DefaultDocumentsDir},
		Index:     IndexConfig{DataDir: DefaultDataDir},
		Embedding: EmbeddingConfig{Kind: DefaultEmbeddingKind},
		LLM:       LLMConfig{Temperature: 0.2},
		Chunking: ChunkingConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:           DefaultTopK,
			HistoryWindow:  DefaultHistoryWindow,
			QueryUserTurns: DefaultQueryUserTurns,
			SnippetLength:  DefaultSnippetLength,
		},
		Watcher: WatcherConfig{
			Enabled:         true,
			DebounceSeconds: DefaultDebounceSeconds,
		},
	}
}

// Load reads configuration from a TOML file, overlaying defaults.
// A missing file is not an error; the defaults apply. Environment
// variables GROQ_API_KEY and OPENAI_API_KEY override the file values
// so secrets can stay out of config files.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}

	return cfg, cfg.validate()
}

// Debounce returns the watcher debounce window as a duration.
func (c WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// validate rejects configurations that cannot work.
func (c Config) validate() error {
	if c.Embedding.Kind != "ollama" && c.Embedding.Kind != "openai" {
		return fmt.Errorf("embedding.kind must be \"ollama\" or \"openai\", got %q", c.Embedding.Kind)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must not be negative")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Watcher.DebounceSeconds < 0 {
		return fmt.Errorf("watcher.debounce_seconds must not be negative")
	}
	return nil
}
