package domain

// PrivacyFilter selects which privacy levels a search may return.
type PrivacyFilter string

// Privacy filter values. The default is public-only; widening the
// filter is an authorization decision made by the caller, never here.
const (
	PrivacyFilterPublic PrivacyFilter = "public"
	PrivacyFilterAll    PrivacyFilter = "all"
)

// RetrievalFilters narrows a search by privacy and classification tags.
type RetrievalFilters struct {
	// Privacy selects returnable privacy levels. Empty means public-only.
	Privacy PrivacyFilter `json:"privacy,omitempty"`

	// DocType restricts to one document type. Empty means any.
	DocType string `json:"doc_type,omitempty"`

	// Product restricts to one product. Empty means any.
	Product string `json:"product,omitempty"`
}

// Candidate is a retrieved chunk with its scoring breakdown.
type Candidate struct {
	// Chunk is the retrieved passage.
	Chunk Chunk

	// VectorScore is the normalised cosine similarity (0-1), if any.
	VectorScore float64

	// LexicalScore is the normalised term-match score (0-1), if any.
	LexicalScore float64

	// FusedScore is the weighted combination used for ranking.
	FusedScore float64
}

// RetrievalMethod records which legs of retrieval produced a result set.
type RetrievalMethod string

// Retrieval methods, recorded in telemetry.
const (
	RetrievalHybrid      RetrievalMethod = "hybrid"
	RetrievalVectorOnly  RetrievalMethod = "vector_only"
	RetrievalLexicalOnly RetrievalMethod = "lexical_only"
)

// RetrievalResult is the output of the hybrid retriever.
type RetrievalResult struct {
	// Candidates are ranked by descending fused score.
	Candidates []Candidate

	// Method records which retrieval legs contributed.
	Method RetrievalMethod

	// Degraded is true when a leg failed and the result is partial
	// (e.g. lexical-only because no embedding backend was available).
	Degraded bool

	// Counts are the per-stage candidate counts for telemetry.
	Counts CandidateCounts
}
