package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qwant1k/rag/internal/core/domain"
)

func TestNormaliser_Extensions(t *testing.T) {
	n := New()
	assert.Equal(t, []string{".pdf"}, n.Extensions())
}

func TestNormaliser_Normalise_InvalidInput(t *testing.T) {
	n := New()
	ctx := context.Background()

	t.Run("nil raw document", func(t *testing.T) {
		_, err := n.Normalise(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("not a pdf", func(t *testing.T) {
		raw := &domain.RawDocument{
			Source:  "fake.pdf",
			Content: []byte("plain text pretending to be a pdf"),
		}
		_, err := n.Normalise(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty content", func(t *testing.T) {
		raw := &domain.RawDocument{
			Source:  "empty.pdf",
			Content: nil,
		}
		_, err := n.Normalise(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
