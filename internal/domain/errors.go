package domain

import "errors"

var (
	// ErrInvalidRequest signals a retrieval request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPassageNotFound signals a missing passage.
	ErrPassageNotFound = errors.New("passage not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorStore signals a vector store failure.
	ErrVectorStore = errors.New("vector store error")
	// ErrGenerationFailed signals an answer generation failure.
	ErrGenerationFailed = errors.New("answer generation failed")
)
