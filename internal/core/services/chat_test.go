package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwant1k/rag/internal/core/domain"
)

// newChatFixture wires a chat service over a pre-seeded in-memory index.
func newChatFixture(t *testing.T, llm *mockLLM, chunks ...domain.Chunk) (*ChatService, *memStore) {
	t.Helper()

	store := newMemStore()
	if len(chunks) > 0 {
		require.NoError(t, store.Upsert(context.Background(), chunks))
	}
	index := NewIndexProvider(func() (*Handle, error) {
		return &Handle{Embedder: &mockEmbedder{}, Store: store}, nil
	})

	return NewChatService(index, llm, ChatConfig{}), store
}

func chatChunk(source string, page, position int, content string) domain.Chunk {
	return domain.Chunk{
		ID:        domain.ChunkID(source, page, position, content),
		Source:    source,
		Page:      page,
		Position:  position,
		Content:   content,
		Embedding: []float32{1, 0},
	}
}

func TestChatService_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty question", func(t *testing.T) {
		svc, _ := newChatFixture(t, &mockLLM{})
		_, err := svc.Answer(ctx, "   ", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("grounds the prompt in retrieved passages", func(t *testing.T) {
		llm := &mockLLM{reply: "grounded answer"}
		svc, _ := newChatFixture(t, llm,
			chatChunk("policy.pdf", 2, 0, "vacation allowance is 25 days"),
		)

		answer, err := svc.Answer(ctx, "how many vacation days?", nil)
		require.NoError(t, err)
		assert.Equal(t, "grounded answer", answer.Text)

		messages := llm.lastMessages()
		require.NotEmpty(t, messages)
		system := messages[0]
		assert.Equal(t, domain.RoleSystem, system.Role)
		assert.Contains(t, system.Content, "[Source: policy.pdf, p. 2]")
		assert.Contains(t, system.Content, "vacation allowance is 25 days")

		last := messages[len(messages)-1]
		assert.Equal(t, domain.RoleUser, last.Role)
		assert.Equal(t, "how many vacation days?", last.Content)
	})

	t.Run("empty index yields the no-documents context", func(t *testing.T) {
		llm := &mockLLM{reply: "cannot find it"}
		svc, _ := newChatFixture(t, llm)

		answer, err := svc.Answer(ctx, "anything?", nil)
		require.NoError(t, err)
		assert.Empty(t, answer.Sources)
		assert.Contains(t, llm.lastMessages()[0].Content, emptyIndexContext)
	})

	t.Run("deduplicates sources by source and page", func(t *testing.T) {
		llm := &mockLLM{reply: "ok"}
		svc, _ := newChatFixture(t, llm,
			chatChunk("a.pdf", 1, 0, "first passage on page one"),
			chatChunk("a.pdf", 1, 1, "second passage on page one"),
			chatChunk("a.pdf", 2, 2, "passage on page two"),
			chatChunk("b.txt", 1, 0, "other document"),
		)

		answer, err := svc.Answer(ctx, "question", nil)
		require.NoError(t, err)

		require.Len(t, answer.Sources, 3)
		assert.Equal(t, domain.Source{Filename: "a.pdf", Page: 1, Snippet: "first passage on page one"}, answer.Sources[0])
		assert.Equal(t, "a.pdf", answer.Sources[1].Filename)
		assert.Equal(t, 2, answer.Sources[1].Page)
		assert.Equal(t, "b.txt", answer.Sources[2].Filename)
	})

	t.Run("bounds snippets", func(t *testing.T) {
		llm := &mockLLM{reply: "ok"}
		long := strings.Repeat("д", 400)
		svc, _ := newChatFixture(t, llm, chatChunk("long.txt", 1, 0, long))

		answer, err := svc.Answer(ctx, "question", nil)
		require.NoError(t, err)

		require.Len(t, answer.Sources, 1)
		snippetRunes := []rune(answer.Sources[0].Snippet)
		assert.Len(t, snippetRunes, DefaultSnippetLength+1) // content plus ellipsis
		assert.Equal(t, '…', snippetRunes[len(snippetRunes)-1])
	})

	t.Run("truncates history to the rolling window", func(t *testing.T) {
		llm := &mockLLM{reply: "ok"}
		svc, _ := newChatFixture(t, llm, chatChunk("a.txt", 1, 0, "context"))

		history := make([]domain.ChatMessage, 30)
		for i := range history {
			role := domain.RoleUser
			if i%2 == 1 {
				role = domain.RoleAssistant
			}
			history[i] = domain.ChatMessage{Role: role, Content: strings.Repeat("m", i+1)}
		}

		_, err := svc.Answer(ctx, "question", history)
		require.NoError(t, err)

		// System prompt + window + current question.
		messages := llm.lastMessages()
		assert.Len(t, messages, 1+DefaultHistoryWindow+1)
		// The window keeps the most recent messages.
		assert.Equal(t, history[len(history)-1].Content, messages[len(messages)-2].Content)
	})

	t.Run("wraps llm failures", func(t *testing.T) {
		llm := &mockLLM{chatErr: errors.New("upstream 500")}
		svc, _ := newChatFixture(t, llm, chatChunk("a.txt", 1, 0, "context"))

		_, err := svc.Answer(ctx, "question", nil)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestChatService_AnswerStream(t *testing.T) {
	ctx := context.Background()

	t.Run("tokens then sources then done", func(t *testing.T) {
		llm := &mockLLM{tokens: []string{"The ", "answer"}}
		svc, _ := newChatFixture(t, llm, chatChunk("a.txt", 1, 0, "context passage"))

		stream, err := svc.AnswerStream(ctx, "question", nil)
		require.NoError(t, err)

		var events []domain.StreamEvent
		for event := range stream {
			events = append(events, event)
		}

		require.Len(t, events, 4)
		assert.Equal(t, domain.StreamToken, events[0].Type)
		assert.Equal(t, "The ", events[0].Token)
		assert.Equal(t, domain.StreamToken, events[1].Type)
		assert.Equal(t, domain.StreamSources, events[2].Type)
		require.Len(t, events[2].Sources, 1)
		assert.Equal(t, "a.txt", events[2].Sources[0].Filename)
		assert.Equal(t, domain.StreamDone, events[3].Type)
	})

	t.Run("mid-stream failure emits error event", func(t *testing.T) {
		llm := &mockLLM{tokens: []string{"partial"}, streamErr: errors.New("connection reset")}
		svc, _ := newChatFixture(t, llm, chatChunk("a.txt", 1, 0, "context"))

		stream, err := svc.AnswerStream(ctx, "question", nil)
		require.NoError(t, err)

		var events []domain.StreamEvent
		for event := range stream {
			events = append(events, event)
		}

		require.Len(t, events, 2)
		assert.Equal(t, domain.StreamToken, events[0].Type)
		terminal := events[1]
		assert.Equal(t, domain.StreamError, terminal.Type)
		assert.Contains(t, terminal.Token, "connection reset")
	})

	t.Run("rejects empty question", func(t *testing.T) {
		svc, _ := newChatFixture(t, &mockLLM{})
		_, err := svc.AnswerStream(ctx, "", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestBuildRetrievalQuery(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "first question"},
		{Role: domain.RoleAssistant, Content: "first answer"},
		{Role: domain.RoleUser, Content: "second question"},
		{Role: domain.RoleAssistant, Content: "second answer"},
		{Role: domain.RoleUser, Content: "third question"},
		{Role: domain.RoleAssistant, Content: "third answer"},
		{Role: domain.RoleUser, Content: "fourth question"},
	}

	t.Run("keeps the last user turns oldest first", func(t *testing.T) {
		query := buildRetrievalQuery("what about it?", history, 3)
		assert.Equal(t, "second question\nthird question\nfourth question\nwhat about it?", query)
	})

	t.Run("assistant turns never join the query", func(t *testing.T) {
		query := buildRetrievalQuery("q", history, 10)
		assert.NotContains(t, query, "answer")
	})

	t.Run("no history", func(t *testing.T) {
		assert.Equal(t, "bare question", buildRetrievalQuery("bare question", nil, 3))
	})
}
