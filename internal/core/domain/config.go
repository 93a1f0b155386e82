package domain

import "time"

// EngineConfig is the recognised runtime configuration surface.
// Router thresholds are hot-reloadable because corpus coverage shifts
// as documents are added.
type EngineConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// vector-search hit.
	SimilarityThreshold float64

	// VectorWeight and LexicalWeight are the fusion weights. They are
	// normalised before use; vector-dominant by default.
	VectorWeight  float64
	LexicalWeight float64

	// IdentifierBoost is added to the lexical weight when the query
	// contains exact identifiers (acronyms, versions, error codes).
	IdentifierBoost float64

	// RouterLowThreshold and RouterHighThreshold split confidence into
	// WEB_ONLY / HYBRID / DOCUMENT_ONLY bands.
	RouterLowThreshold  float64
	RouterHighThreshold float64

	// RerankerEnabled toggles the second-pass reranker.
	RerankerEnabled bool

	// WebCacheTTL bounds how long web results are served from cache.
	WebCacheTTL time.Duration

	// ProbeInterval is how often unhealthy embedding workers are probed.
	ProbeInterval time.Duration

	// FailureThreshold is the consecutive-failure count that marks a
	// worker Unhealthy. RecoveryThreshold is the successful-probe count
	// that restores it.
	FailureThreshold  int
	RecoveryThreshold int

	// MaxCandidatesPerStage caps each retrieval leg (the fused list is
	// truncated to half of it).
	MaxCandidatesPerStage int

	// MaxContextChunks caps how much evidence is sent to generation.
	MaxContextChunks int
}

// DefaultEngineConfig returns the shipped defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SimilarityThreshold:   0.35,
		VectorWeight:          0.7,
		LexicalWeight:         0.3,
		IdentifierBoost:       0.2,
		RouterLowThreshold:    0.35,
		RouterHighThreshold:   0.7,
		RerankerEnabled:       true,
		WebCacheTTL:           15 * time.Minute,
		ProbeInterval:         30 * time.Second,
		FailureThreshold:      3,
		RecoveryThreshold:     1,
		MaxCandidatesPerStage: 40,
		MaxContextChunks:      8,
	}
}
