package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexProvider_Handle(t *testing.T) {
	t.Run("builds lazily and caches", func(t *testing.T) {
		builds := 0
		provider := NewIndexProvider(func() (*Handle, error) {
			builds++
			return &Handle{Embedder: &mockEmbedder{}, Store: newMemStore()}, nil
		})

		first, err := provider.Handle()
		require.NoError(t, err)
		second, err := provider.Handle()
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, builds)
	})

	t.Run("build failure is not cached", func(t *testing.T) {
		fail := true
		provider := NewIndexProvider(func() (*Handle, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return &Handle{Embedder: &mockEmbedder{}, Store: newMemStore()}, nil
		})

		_, err := provider.Handle()
		require.Error(t, err)

		fail = false
		handle, err := provider.Handle()
		require.NoError(t, err)
		assert.NotNil(t, handle)
	})
}

func TestIndexProvider_Reset(t *testing.T) {
	stores := []*memStore{}
	provider := NewIndexProvider(func() (*Handle, error) {
		store := newMemStore()
		stores = append(stores, store)
		return &Handle{Embedder: &mockEmbedder{}, Store: store}, nil
	})

	first, err := provider.Handle()
	require.NoError(t, err)

	provider.Reset()
	assert.True(t, stores[0].closed, "reset must close the old store")

	second, err := provider.Handle()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.Len(t, stores, 2)
}

func TestIndexProvider_WithLock(t *testing.T) {
	t.Run("serialises mutations", func(t *testing.T) {
		provider := NewIndexProvider(func() (*Handle, error) {
			return &Handle{Embedder: &mockEmbedder{}, Store: newMemStore()}, nil
		})

		var active, maxActive int
		var mu sync.Mutex
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = provider.WithLock(func(*Handle) error {
					mu.Lock()
					active++
					if active > maxActive {
						maxActive = active
					}
					mu.Unlock()

					mu.Lock()
					active--
					mu.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, maxActive, "two mutations held the lock at once")
	})

	t.Run("propagates build errors", func(t *testing.T) {
		provider := NewIndexProvider(func() (*Handle, error) {
			return nil, errors.New("cannot build")
		})

		err := provider.WithLock(func(*Handle) error { return nil })
		require.Error(t, err)
	})

	t.Run("propagates fn errors", func(t *testing.T) {
		provider := NewIndexProvider(func() (*Handle, error) {
			return &Handle{Embedder: &mockEmbedder{}, Store: newMemStore()}, nil
		})

		sentinel := errors.New("mutation failed")
		err := provider.WithLock(func(*Handle) error { return sentinel })
		assert.ErrorIs(t, err, sentinel)
	})
}
