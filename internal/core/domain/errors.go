package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed query or filter.
	// Input errors are reported to the caller, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable indicates an embedding, rerank or generation
	// backend is down. Callers retry with backoff, then apply the
	// component-specific fallback.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStoreUnavailable indicates a persistence failure.
	// Store errors are always retried and never silently dropped.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWebSearchFailed indicates the external web provider failed.
	// Web failures are always swallowed to an empty result set.
	ErrWebSearchFailed = errors.New("web search failed")

	// ErrNoEvidence indicates no evidence at all could be assembled
	// for a query. The synthesizer turns this into a terminal error
	// event rather than an ungrounded answer.
	ErrNoEvidence = errors.New("no evidence available")
)

// DuplicateChunkError indicates an upsert found different content at an
// already-occupied position under the same document version.
type DuplicateChunkError struct {
	DocumentID string
	Position   int
}

// Error implements the error interface.
func (e *DuplicateChunkError) Error() string {
	return fmt.Sprintf("duplicate chunk at position %d of document %s with different content",
		e.Position, e.DocumentID)
}

// InvalidFilterError indicates malformed retrieval filters.
type InvalidFilterError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

// Is reports that an InvalidFilterError is an ErrInvalidInput.
func (e *InvalidFilterError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StoreUnavailableError indicates a storage outage with its cause.
type StoreUnavailableError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Is reports that a StoreUnavailableError is an ErrStoreUnavailable.
func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NoBackendAvailableError indicates every embedding worker is unhealthy.
// Callers decide whether to degrade to lexical-only retrieval.
type NoBackendAvailableError struct {
	Workers int
}

// Error implements the error interface.
func (e *NoBackendAvailableError) Error() string {
	return fmt.Sprintf("no embedding backend available (%d workers unhealthy)", e.Workers)
}

// Is reports that a NoBackendAvailableError is an ErrBackendUnavailable.
func (e *NoBackendAvailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// DimensionMismatchError indicates a vector's length does not equal its
// model's declared dimension.
type DimensionMismatchError struct {
	ModelName string
	Want      int
	Got       int
}

// Error implements the error interface.
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch for model %s: want %d, got %d",
		e.ModelName, e.Want, e.Got)
}

// Is reports that a DimensionMismatchError is an ErrInvalidInput.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrInvalidInput
}
