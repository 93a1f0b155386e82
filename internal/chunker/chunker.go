// Package chunker splits raw document text into fixed-size passages
// with overlap, for callers that ingest plain files instead of
// pre-chunked pipeline output.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Splitter splits document content into fixed-size chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split cuts content into passages owned by doc. Classification and
// privacy tags are left to ingestion, which inherits them from the
// document.
func (s *Splitter) Split(doc domain.Document, content string) []domain.Chunk {
	if content == "" {
		return nil
	}

	contentLen := len(content)
	estimated := (contentLen / (s.chunkSize - s.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	start := 0

	for start < contentLen {
		end := start + s.chunkSize
		if end > contentLen {
			end = contentLen
		}

		passage := content[start:end]

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Position:   position,
			Kind:       domain.ChunkKindText,
			Content:    passage,
			TokenCount: len(strings.Fields(passage)),
		})
		position++

		// Move start forward by (chunkSize - overlap)
		start += s.chunkSize - s.overlap

		// Avoid infinite loop for edge cases
		if s.chunkSize <= s.overlap {
			break
		}
	}

	return chunks
}
