// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - ChunkStore: Chunk, document and embedding persistence plus
//     similarity and lexical search. Read-only at query time.
//   - EmbeddingBackend: One inference worker converting text to vectors.
//     The pool requires at least one registered worker.
//   - Generator: Streaming text generation for answer synthesis.
//   - TelemetrySink: Append-only per-query telemetry. Write-only.
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - RerankBackend: Second-pass (query, passage) scoring. Without it,
//     fused order passes through and responses are flagged unreranked.
//   - WebSearchProvider: Live web lookup. Without it, the router's
//     WEB_ONLY and HYBRID strategies carry no web results.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
