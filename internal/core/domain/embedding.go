package domain

// EmbeddingModel registers a model family, its output dimension and provider.
// A stored vector's length must equal its model's declared dimension.
// Changing the dimension requires a full re-embedding pass; dimensions
// are never mixed within one active model slot.
type EmbeddingModel struct {
	// ID is the unique identifier for the model registration.
	ID string

	// Name is the model family name (e.g. "nomic-embed-text").
	Name string

	// Dimension is the declared output vector width.
	Dimension int

	// Provider identifies the inference provider (e.g. "ollama", "openai").
	Provider string
}

// Embedding holds one vector for a (chunk, model) pair.
// A chunk may hold several embeddings during a migration window.
// Embeddings are replaced wholesale, never mutated in place.
type Embedding struct {
	// ChunkID links to the embedded chunk.
	ChunkID string

	// ModelID links to the EmbeddingModel that produced the vector.
	ModelID string

	// Vector is the embedding. Its length must equal the model dimension.
	Vector []float32
}
