package domain

import "time"

// PrivacyLevel controls who may see a document and its chunks.
type PrivacyLevel string

// Privacy levels, ordered from least to most restrictive.
const (
	PrivacyPublic  PrivacyLevel = "public"
	PrivacyPrivate PrivacyLevel = "private"
)

// Valid reports whether the privacy level is a known value.
func (p PrivacyLevel) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

// ChunkKind identifies how a chunk's content was extracted.
type ChunkKind string

// Chunk kinds.
const (
	ChunkKindText  ChunkKind = "text"
	ChunkKindTable ChunkKind = "table"
	ChunkKindImage ChunkKind = "image"
	ChunkKindOCR   ChunkKind = "ocr"
)

// Valid reports whether the chunk kind is a known value.
func (k ChunkKind) Valid() bool {
	switch k {
	case ChunkKindText, ChunkKindTable, ChunkKindImage, ChunkKindOCR:
		return true
	}
	return false
}

// Document represents an ingested source file with its classification.
// The checksum is the dedup key: re-ingesting an unchanged document
// produces no new chunks or embeddings.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Checksum is the content hash used for ingestion deduplication.
	Checksum string `json:"checksum"`

	// DocType classifies the document (e.g. "manual", "datasheet", "release-notes").
	DocType string `json:"doc_type,omitempty"`

	// Product is the product the document describes.
	Product string `json:"product,omitempty"`

	// Version is the product version the document applies to.
	Version string `json:"version,omitempty"`

	// Category is a free classification bucket assigned at ingestion.
	Category string `json:"category,omitempty"`

	// Privacy is the access level. Chunks inherit this at ingestion
	// and it is never loosened at query time.
	Privacy PrivacyLevel `json:"privacy"`

	// ClassificationConfidence is the classifier's confidence in the
	// DocType/Product/Category assignment (0-1).
	ClassificationConfidence float64 `json:"classification_confidence,omitempty"`

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Chunk represents one retrievable passage within a document.
// Classification and privacy tags are denormalised from the owning
// document so query-time filtering needs no join.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the owning Document.
	DocumentID string `json:"document_id"`

	// Position is the ordinal position within the document.
	Position int `json:"position"`

	// Kind is how the content was extracted.
	Kind ChunkKind `json:"kind,omitempty"`

	// Page locates the chunk in the source document (e.g. "p.12").
	Page string `json:"page,omitempty"`

	// Content is the passage text.
	Content string `json:"content"`

	// Privacy is inherited from the owning document at ingestion.
	Privacy PrivacyLevel `json:"privacy"`

	// DocType is denormalised from the owning document.
	DocType string `json:"doc_type,omitempty"`

	// Product is denormalised from the owning document.
	Product string `json:"product,omitempty"`

	// SectionTitle is the nearest heading above the passage.
	SectionTitle string `json:"section_title,omitempty"`

	// Language is the detected language code (e.g. "en").
	Language string `json:"language,omitempty"`

	// TokenCount is the tokenizer length of Content.
	TokenCount int `json:"token_count,omitempty"`
}
