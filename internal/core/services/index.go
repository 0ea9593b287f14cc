package services

import (
	"sync"

	"github.com/qwant1k/rag/internal/core/ports/driven"
	"github.com/qwant1k/rag/internal/logger"
)

// Handle bundles the embedding service and vector store that together
// form one usable index.
type Handle struct {
	Embedder driven.EmbeddingService
	Store    driven.VectorStore
}

// IndexProvider owns the index handle and the serialization lock over
// index mutations. The handle is built lazily on first use; Reset drops
// it so the next access rebuilds against current on-disk state.
//
// One mutex guards both handle construction and mutation, so a reset
// can never race a rebuild and two mutating operations can never
// interleave. Read paths (similarity search) deliberately do not take
// the lock; they ride on whatever handle is current.
type IndexProvider struct {
	mu    sync.Mutex
	build func() (*Handle, error)

	handle *Handle
}

// NewIndexProvider creates a provider that builds handles with the
// given constructor.
func NewIndexProvider(build func() (*Handle, error)) *IndexProvider {
	return &IndexProvider{build: build}
}

// Handle returns the current index handle, constructing it if needed.
func (p *IndexProvider) Handle() (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handleLocked()
}

// handleLocked returns or builds the handle. Caller must hold mu.
func (p *IndexProvider) handleLocked() (*Handle, error) {
	if p.handle != nil {
		return p.handle, nil
	}

	handle, err := p.build()
	if err != nil {
		return nil, err
	}
	p.handle = handle
	logger.Debug("Index handle constructed (model: %s)", handle.Embedder.ModelName())
	return p.handle, nil
}

// Reset drops the current handle. The next access rebuilds it.
func (p *IndexProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		if err := p.handle.Store.Close(); err != nil {
			logger.Warn("Closing index store on reset: %v", err)
		}
		p.handle = nil
	}
}

// WithLock runs fn against the index handle while holding the
// serialization lock. All index mutations go through here so
// delete-then-upsert replacements execute as one atomic step with
// respect to other writers.
func (p *IndexProvider) WithLock(fn func(*Handle) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := p.handleLocked()
	if err != nil {
		return err
	}
	return fn(handle)
}

// Close releases the handle if one was built.
func (p *IndexProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == nil {
		return nil
	}
	err := p.handle.Store.Close()
	if cerr := p.handle.Embedder.Close(); err == nil {
		err = cerr
	}
	p.handle = nil
	return err
}
