// Package domain defines the core business entities for the answering engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested source file with classification and privacy tags
//   - Chunk: A retrievable passage within a document
//   - EmbeddingModel / Embedding: Vector model registry and stored vectors
//   - Strategy: The answering strategy chosen per query
//   - AnswerEvent: One event in a streamed, cited answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
