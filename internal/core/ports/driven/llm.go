package driven

import (
	"context"

	"github.com/qwant1k/rag/internal/core/domain"
)

// LLMService provides answer generation over a chat-completion API.
//
// Implementations may include:
//   - Groq (OpenAI-compatible API)
//   - OpenAI
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a conversation and streams the reply
	// incrementally. The returned channel is closed when generation
	// finishes; a StreamChunk with Err set is the terminal element on
	// mid-stream failure.
	ChatStream(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StreamChunk is one increment of a streamed completion.
type StreamChunk struct {
	// Content is the text fragment.
	Content string

	// Err is set on the terminal chunk when streaming failed mid-flight.
	Err error
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
