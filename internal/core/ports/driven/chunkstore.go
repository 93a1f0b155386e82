package driven

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// ChunkStore persists documents, chunks and embeddings.
// Backed by SQLite. The store is append/upsert-only at ingestion time
// and read-only at query time; it is never mutated mid-query.
type ChunkStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByChecksum retrieves a document by its content checksum.
	// Returns domain.ErrNotFound when no document matches.
	GetDocumentByChecksum(ctx context.Context, checksum string) (*domain.Document, error)

	// ReclassifyDocument updates a document's classification fields and
	// propagates the denormalised tags to its chunks.
	ReclassifyDocument(ctx context.Context, doc *domain.Document) error

	// DeleteDocument removes a document; deletion cascades to its
	// chunks and their embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// UpsertChunk stores a chunk with its embeddings. Idempotent by
	// (document checksum, position): re-upserting identical content is
	// a no-op, while different content at an occupied position fails
	// with *domain.DuplicateChunkError.
	UpsertChunk(ctx context.Context, chunk domain.Chunk, embeddings []domain.Embedding) error

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// CountChunks returns the number of chunks for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// SimilaritySearch returns up to k chunks by descending cosine
	// similarity to the query vector, above the threshold, honouring
	// the filters. Privacy defaults to public-only. Returns zero rows
	// rather than an error on no matches.
	SimilaritySearch(ctx context.Context, vector []float32, k int,
		threshold float64, filters domain.RetrievalFilters) ([]domain.Candidate, error)

	// LexicalSearch returns up to k chunks by descending term-match
	// score over the same filters. Returns zero rows rather than an
	// error on no matches.
	LexicalSearch(ctx context.Context, text string, k int,
		filters domain.RetrievalFilters) ([]domain.Candidate, error)

	// RegisterModel stores an embedding model registration.
	RegisterModel(ctx context.Context, model domain.EmbeddingModel) error

	// GetModel retrieves an embedding model by name.
	GetModel(ctx context.Context, name string) (*domain.EmbeddingModel, error)

	// Close releases resources.
	Close() error
}
