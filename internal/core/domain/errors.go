package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates configuration that violates a documented bound.
	// Configuration errors are fatal at startup and never silently corrected.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Corpus and index errors.

	// ErrCorpusNotFound indicates the configured corpus directory does not exist.
	ErrCorpusNotFound = errors.New("corpus directory not found")

	// ErrEmptyCorpus indicates the corpus directory holds no documents.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrCollectionNotFound indicates no collection (or alias) exists with the given name.
	// Retrieval treats this as an empty corpus, not as a fault.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrBuildInProgress indicates an index rebuild is already running.
	ErrBuildInProgress = errors.New("index build in progress")

	// ErrDimensionMismatch indicates a vector does not match the collection dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Provider errors.

	// ErrLLMUnavailable indicates the LLM service is not configured or failed.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// Query errors.

	// ErrProhibitedQuery indicates a query asks for personal medical advice.
	// The system provides information only.
	ErrProhibitedQuery = errors.New("this system provides information only, not medical advice; " +
		"please consult a healthcare professional")

	// Access errors.

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the request rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
