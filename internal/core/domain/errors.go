package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file extension with no normaliser.
	// Unsupported files contribute zero chunks; this is not a failure
	// of the batch they belong to.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled without it; retrieval still works.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
