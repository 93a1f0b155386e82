package driven

import "context"

// EmbeddingBackend is one inference worker converting text to
// fixed-dimension vectors. The pool load-balances across several
// interchangeable backends and tracks each one's health.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Local models via inference servers
type EmbeddingBackend interface {
	// Embed generates vector embeddings for a batch of texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This must match the active EmbeddingModel registration.
	Dimensions() int

	// Name identifies the worker in health tracking and logs.
	Name() string

	// Probe validates the backend is reachable with a lightweight
	// request. The pool probes on a fixed interval, independent of
	// query traffic.
	Probe(ctx context.Context) error

	// Close releases resources.
	Close() error
}
