package driving

import (
	"context"

	"github.com/qwant1k/rag/internal/core/domain"
)

// ChatService answers questions grounded in the indexed documents.
type ChatService interface {
	// Answer retrieves relevant chunks for the question and generates
	// a complete grounded answer with citations.
	Answer(ctx context.Context, question string, history []domain.ChatMessage) (*domain.Answer, error)

	// AnswerStream is the streaming variant. The returned channel
	// yields a lazy, finite, non-restartable sequence: token events,
	// then one sources event, then done. A mid-stream generation
	// failure appends an error event after the tokens already
	// delivered; the channel is closed afterwards in all cases.
	AnswerStream(ctx context.Context, question string, history []domain.ChatMessage) (<-chan domain.StreamEvent, error)
}
