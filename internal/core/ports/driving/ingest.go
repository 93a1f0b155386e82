package driving

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// IngestRequest carries one document and its pre-split passages.
type IngestRequest struct {
	// Document is the source file's metadata and classification.
	Document domain.Document `json:"document"`

	// Chunks are the document's passages in order. Privacy and
	// classification tags are inherited from Document during ingestion;
	// values set here are overwritten.
	Chunks []domain.Chunk `json:"chunks"`
}

// IngestResult reports what one ingestion run did.
type IngestResult struct {
	// DocumentID is the stored document's ID.
	DocumentID string `json:"document_id"`

	// ChunksStored is how many new chunks were persisted. Zero when
	// the document's checksum was already known.
	ChunksStored int `json:"chunks_stored"`

	// Skipped is true when the checksum matched an existing document.
	Skipped bool `json:"skipped"`
}

// IngestService populates the chunk store from ingestion output.
type IngestService interface {
	// IngestDocument stores a document and its chunks with embeddings.
	// Idempotent by content checksum.
	IngestDocument(ctx context.Context, req IngestRequest) (*IngestResult, error)
}
