package driven

import "context"

// RerankBackend scores (query, passage) pairs jointly for the
// second-pass reranker. This is an optional service - when nil or
// unavailable, fused order passes through unchanged and the response
// is flagged unreranked in telemetry.
type RerankBackend interface {
	// Score returns one relevance score per passage for the query.
	// Deterministic given fixed model weights.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)

	// ModelName returns the name of the rerank model.
	ModelName() string

	// Close releases resources.
	Close() error
}
