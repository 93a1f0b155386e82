package domain

import "time"

// CandidateCounts records how many candidates each stage produced.
type CandidateCounts struct {
	// Vector is the similarity-search candidate count.
	Vector int `json:"vector"`

	// Lexical is the lexical-search candidate count.
	Lexical int `json:"lexical"`

	// Fused is the deduplicated candidate count after fusion.
	Fused int `json:"fused"`

	// Web is the web-result count, if the web leg ran.
	Web int `json:"web"`
}

// SearchEvent is one append-only telemetry record per query.
// Degradations (unreranked, lexical-only) are recorded here rather
// than surfaced as user-facing errors.
type SearchEvent struct {
	// Query is the user's question.
	Query string

	// Method is the retrieval method that produced the evidence.
	Method RetrievalMethod

	// Strategy is the answering strategy the router chose.
	Strategy StrategyKind

	// Confidence is the router's scalar confidence for the query.
	Confidence float64

	// LatencyMS is the end-to-end latency in milliseconds.
	LatencyMS int64

	// Counts are the per-stage candidate counts.
	Counts CandidateCounts

	// Unreranked is true when the reranker was skipped or fell back.
	Unreranked bool

	// Error holds a terminal failure message, empty on success.
	Error string

	// CreatedAt is when the event was recorded.
	CreatedAt time.Time
}
