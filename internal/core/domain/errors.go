package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates empty query text or a malformed filter.
	// Caller error; never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmbeddingUnavailable indicates the embedding backend is down or
	// timed out. Retryable.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrEmptyText is the skip sentinel for blank embedding input.
	// Blank documents are never indexed; callers must not index a zero vector.
	ErrEmptyText = errors.New("empty text")

	// ErrSourceNotFound indicates a queued event referenced a source that the
	// store no longer has. Treated as an implicit delete.
	ErrSourceNotFound = errors.New("source not found")

	// ErrReindexInProgress indicates a full reindex is already running
	ErrReindexInProgress = errors.New("reindex already in progress")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
