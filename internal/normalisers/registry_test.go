package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driven"
)

// fakeNormaliser records the documents it was asked to normalise.
type fakeNormaliser struct {
	exts   []string
	called int
}

func (f *fakeNormaliser) Extensions() []string { return f.exts }

func (f *fakeNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	f.called++
	return &driven.NormaliseResult{
		Document: domain.Document{Source: raw.Source},
	}, nil
}

func TestRegistry_Supported(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{exts: []string{".txt", ".md"}})

	assert.True(t, r.Supported(".txt"))
	assert.True(t, r.Supported(".TXT"))
	assert.True(t, r.Supported(".md"))
	assert.False(t, r.Supported(".pdf"))
	assert.False(t, r.Supported(""))
}

func TestRegistry_Normalise(t *testing.T) {
	t.Run("dispatches by extension", func(t *testing.T) {
		txt := &fakeNormaliser{exts: []string{".txt"}}
		md := &fakeNormaliser{exts: []string{".md"}}

		r := NewRegistry()
		r.Register(txt)
		r.Register(md)

		result, err := r.Normalise(context.Background(), &domain.RawDocument{Source: "a.txt"})
		require.NoError(t, err)
		assert.Equal(t, "a.txt", result.Document.Source)
		assert.Equal(t, 1, txt.called)
		assert.Equal(t, 0, md.called)
	})

	t.Run("extension match is case-insensitive", func(t *testing.T) {
		txt := &fakeNormaliser{exts: []string{".txt"}}

		r := NewRegistry()
		r.Register(txt)

		_, err := r.Normalise(context.Background(), &domain.RawDocument{Source: "NOTES.TXT"})
		require.NoError(t, err)
		assert.Equal(t, 1, txt.called)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&fakeNormaliser{exts: []string{".txt"}})

		_, err := r.Normalise(context.Background(), &domain.RawDocument{Source: "video.mp4"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("no extension", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&fakeNormaliser{exts: []string{".txt"}})

		_, err := r.Normalise(context.Background(), &domain.RawDocument{Source: "Makefile"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("nil raw document", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Normalise(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	for _, ext := range []string{".txt", ".pdf", ".docx"} {
		assert.True(t, r.Supported(ext), "expected %s to be supported", ext)
	}
	assert.False(t, r.Supported(".doc"))
	assert.ElementsMatch(t, []string{".txt", ".pdf", ".docx"}, r.Extensions())
}
