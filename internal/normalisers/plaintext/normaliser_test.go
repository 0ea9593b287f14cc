package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwant1k/rag/internal/core/domain"
)

func TestNormaliser_Extensions(t *testing.T) {
	n := New()
	assert.Equal(t, []string{".txt"}, n.Extensions())
}

func TestNormaliser_Normalise(t *testing.T) {
	n := New()

	t.Run("nil raw document", func(t *testing.T) {
		_, err := n.Normalise(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("utf-8 content", func(t *testing.T) {
		raw := &domain.RawDocument{
			Source:  "notes.txt",
			Content: []byte("first line\r\nsecond line\n"),
		}

		result, err := n.Normalise(context.Background(), raw)
		require.NoError(t, err)

		require.Len(t, result.Document.Pages, 1)
		assert.Equal(t, 1, result.Document.Pages[0].Number)
		assert.Equal(t, "first line\nsecond line", result.Document.Pages[0].Text)
		assert.Equal(t, "notes.txt", result.Document.Source)
		assert.False(t, result.Document.IngestedAt.IsZero())
	})

	t.Run("windows-1251 fallback", func(t *testing.T) {
		// "Привет" encoded as cp1251, invalid as UTF-8.
		raw := &domain.RawDocument{
			Source:  "legacy.txt",
			Content: []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2},
		}

		result, err := n.Normalise(context.Background(), raw)
		require.NoError(t, err)

		require.Len(t, result.Document.Pages, 1)
		assert.Equal(t, "Привет", result.Document.Pages[0].Text)
	})

	t.Run("whitespace-only content yields no pages", func(t *testing.T) {
		raw := &domain.RawDocument{
			Source:  "empty.txt",
			Content: []byte("   \n\n\t  \n"),
		}

		result, err := n.Normalise(context.Background(), raw)
		require.NoError(t, err)
		assert.Empty(t, result.Document.Pages)
	})
}
