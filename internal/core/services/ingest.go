package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService populates the chunk store from ingestion output.
// Privacy and classification tags flow one way, document to chunk, and
// are denormalised here for filterless query-time filtering.
type IngestService struct {
	store     driven.ChunkStore
	pool      embedder
	modelName string
}

// NewIngestService creates an ingest service embedding with the named
// registered model.
func NewIngestService(store driven.ChunkStore, pool embedder, modelName string) *IngestService {
	return &IngestService{
		store:     store,
		pool:      pool,
		modelName: modelName,
	}
}

// IngestDocument stores a document and its chunks with embeddings.
// Idempotent by content checksum: an unchanged document produces zero
// new chunks or embeddings.
func (s *IngestService) IngestDocument(
	ctx context.Context, req driving.IngestRequest,
) (*driving.IngestResult, error) {
	logger.Section("Ingestion")

	doc := req.Document
	if doc.Checksum == "" {
		return nil, fmt.Errorf("ingest: missing checksum: %w", domain.ErrInvalidInput)
	}
	if !doc.Privacy.Valid() {
		return nil, fmt.Errorf("ingest: privacy level %q: %w", doc.Privacy, domain.ErrInvalidInput)
	}

	existing, err := s.store.GetDocumentByChecksum(ctx, doc.Checksum)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("ingest: checksum lookup: %w", err)
	}
	if existing != nil {
		logger.Info("Document with checksum %s already ingested, skipping", doc.Checksum)
		return &driving.IngestResult{DocumentID: existing.ID, Skipped: true}, nil
	}

	model, err := s.store.GetModel(ctx, s.modelName)
	if err != nil {
		return nil, fmt.Errorf("ingest: model %q not registered: %w", s.modelName, err)
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := s.store.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("ingest: save document: %w", err)
	}

	texts := make([]string, len(req.Chunks))
	for i, chunk := range req.Chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.pool.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ingest: embed chunks: %w", err)
	}
	if len(vectors) != len(req.Chunks) {
		return nil, fmt.Errorf("ingest: expected %d vectors, got %d", len(req.Chunks), len(vectors))
	}

	stored := 0
	for i, chunk := range req.Chunks {
		if len(vectors[i]) != model.Dimension {
			return nil, &domain.DimensionMismatchError{
				ModelName: model.Name,
				Want:      model.Dimension,
				Got:       len(vectors[i]),
			}
		}

		// Tags inherit from the document; values on the chunk are
		// overwritten, never trusted.
		chunk.DocumentID = doc.ID
		chunk.Privacy = doc.Privacy
		chunk.DocType = doc.DocType
		chunk.Product = doc.Product
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if chunk.Position == 0 {
			chunk.Position = i
		}
		if chunk.Kind == "" {
			chunk.Kind = domain.ChunkKindText
		}
		if chunk.TokenCount == 0 {
			chunk.TokenCount = estimateTokens(chunk.Content)
		}

		embedding := domain.Embedding{
			ChunkID: chunk.ID,
			ModelID: model.ID,
			Vector:  vectors[i],
		}
		if err := s.store.UpsertChunk(ctx, chunk, []domain.Embedding{embedding}); err != nil {
			return nil, fmt.Errorf("ingest: upsert chunk %d: %w", i, err)
		}
		stored++
	}

	logger.Info("Ingested document %s: %d chunks", doc.ID, stored)
	return &driving.IngestResult{DocumentID: doc.ID, ChunksStored: stored}, nil
}

// estimateTokens approximates tokenizer length at four characters per
// token, the usual heuristic for English technical prose.
func estimateTokens(content string) int {
	n := len(strings.TrimSpace(content)) / 4
	if n == 0 {
		n = 1
	}
	return n
}
