package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/core/ports/driving"
	"github.com/qwant1k/rag/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Default retrieval parameters.
const (
	DefaultTopK           = 5
	DefaultHistoryWindow  = 12
	DefaultQueryUserTurns = 3
	DefaultSnippetLength  = 150
)

// emptyIndexContext replaces retrieved passages when the index has
// nothing to offer, so the model declines instead of inventing.
const emptyIndexContext = "No documents found in the knowledge base."

// systemPrompt instructs the model to stay grounded in the retrieved
// passages and cite them.
const systemPrompt = `You are an assistant answering questions about an internal document collection.
Answer using ONLY the provided context passages. Each passage is labelled with its source file and page.
When you use a passage, cite it inline as (source, p. page).
If the context does not contain the answer, say you could not find it in the documents. Do not invent information.
Answer in the language of the question.`

// ChatConfig tunes retrieval and generation.
type ChatConfig struct {
	// TopK is how many chunks feed the answer context.
	TopK int

	// HistoryWindow bounds how many conversation messages reach the LLM.
	HistoryWindow int

	// QueryUserTurns is how many recent user turns join the retrieval
	// query, so follow-ups that lean on pronouns still retrieve well.
	QueryUserTurns int

	// SnippetLength bounds the cited source preview, in runes.
	SnippetLength int

	// MaxTokens caps generation length. Zero means backend default.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// withDefaults fills unset fields.
func (c ChatConfig) withDefaults() ChatConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	if c.QueryUserTurns <= 0 {
		c.QueryUserTurns = DefaultQueryUserTurns
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = DefaultSnippetLength
	}
	return c
}

// ChatService answers questions over the indexed documents: retrieve
// the most relevant chunks, compose them into a grounded prompt, and
// delegate generation to the LLM.
type ChatService struct {
	index *IndexProvider
	llm   driven.LLMService
	cfg   ChatConfig
}

// NewChatService creates a new chat service.
func NewChatService(index *IndexProvider, llm driven.LLMService, cfg ChatConfig) *ChatService {
	return &ChatService{
		index: index,
		llm:   llm,
		cfg:   cfg.withDefaults(),
	}
}

// Answer generates a complete reply with citations.
func (s *ChatService) Answer(ctx context.Context, question string, history []domain.ChatMessage) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidInput
	}

	messages, sources, err := s.prepare(ctx, question, history)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}

	return &domain.Answer{Text: text, Sources: sources}, nil
}

// AnswerStream generates a reply incrementally. The returned channel
// carries token events, then one sources event, then done; an error
// event terminates the stream instead. The channel closes when the
// stream ends.
func (s *ChatService) AnswerStream(ctx context.Context, question string, history []domain.ChatMessage) (<-chan domain.StreamEvent, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidInput
	}

	messages, sources, err := s.prepare(ctx, question, history)
	if err != nil {
		return nil, err
	}

	stream, err := s.llm.ChatStream(ctx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}

	out := make(chan domain.StreamEvent)
	go func() {
		defer close(out)

		for chunk := range stream {
			if chunk.Err != nil {
				logger.Error("Answer stream: %v", chunk.Err)
				s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamError, Token: chunk.Err.Error()})
				return
			}
			if !s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamToken, Token: chunk.Content}) {
				return
			}
		}

		if !s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamSources, Sources: sources}) {
			return
		}
		s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamDone})
	}()

	return out, nil
}

// emit sends an event unless the context is done.
func (s *ChatService) emit(ctx context.Context, out chan<- domain.StreamEvent, event domain.StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// prepare retrieves context for the question and assembles the message
// list for generation.
func (s *ChatService) prepare(ctx context.Context, question string, history []domain.ChatMessage) ([]domain.ChatMessage, []domain.Source, error) {
	hits, err := s.retrieve(ctx, question, history)
	if err != nil {
		return nil, nil, err
	}

	sources := s.collectSources(hits)
	contextBlock := formatContext(hits)

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: systemPrompt + "\n\nContext:\n" + contextBlock,
	})
	messages = append(messages, tail(history, s.cfg.HistoryWindow)...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: question})

	return messages, sources, nil
}

// retrieve embeds the retrieval query and searches the index. Reads do
// not take the index lock; they ride on the current handle.
func (s *ChatService) retrieve(ctx context.Context, question string, history []domain.ChatMessage) ([]driven.VectorHit, error) {
	handle, err := s.index.Handle()
	if err != nil {
		return nil, err
	}

	query := buildRetrievalQuery(question, history, s.cfg.QueryUserTurns)
	embedding, err := handle.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := handle.Store.Search(ctx, embedding, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	logger.Debug("Retrieved %d chunks for question", len(hits))
	return hits, nil
}

// buildRetrievalQuery joins the last few user turns with the current
// question. Follow-up questions often lean on pronouns; the recent
// turns carry the referents.
func buildRetrievalQuery(question string, history []domain.ChatMessage, userTurns int) string {
	var turns []string
	for i := len(history) - 1; i >= 0 && len(turns) < userTurns; i-- {
		if history[i].Role == domain.RoleUser && strings.TrimSpace(history[i].Content) != "" {
			turns = append(turns, history[i].Content)
		}
	}

	// Oldest first.
	var sb strings.Builder
	for i := len(turns) - 1; i >= 0; i-- {
		sb.WriteString(turns[i])
		sb.WriteString("\n")
	}
	sb.WriteString(question)
	return sb.String()
}

// collectSources deduplicates hits by (source, page), preserving
// first-seen order, and bounds each snippet.
func (s *ChatService) collectSources(hits []driven.VectorHit) []domain.Source {
	type key struct {
		source string
		page   int
	}

	seen := make(map[key]struct{}, len(hits))
	sources := make([]domain.Source, 0, len(hits))
	for _, hit := range hits {
		k := key{hit.Chunk.Source, hit.Chunk.Page}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sources = append(sources, domain.Source{
			Filename: hit.Chunk.Source,
			Page:     hit.Chunk.Page,
			Snippet:  snippet(hit.Chunk.Content, s.cfg.SnippetLength),
		})
	}
	return sources
}

// formatContext renders retrieved chunks as labelled passages.
func formatContext(hits []driven.VectorHit) string {
	if len(hits) == 0 {
		return emptyIndexContext
	}

	blocks := make([]string, len(hits))
	for i, hit := range hits {
		blocks[i] = fmt.Sprintf("[Source: %s, p. %d]\n%s", hit.Chunk.Source, hit.Chunk.Page, hit.Chunk.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// snippet bounds text to maxRunes, appending an ellipsis when cut.
func snippet(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}

// tail returns the last n elements of messages.
func tail(messages []domain.ChatMessage, n int) []domain.ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
