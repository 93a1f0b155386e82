package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// RerankOutcome is a reranked candidate list with its degradation flag.
type RerankOutcome struct {
	// Candidates are ordered best first.
	Candidates []domain.Candidate

	// Unreranked is true when the backend was disabled or unavailable
	// and the fused order passed through unchanged.
	Unreranked bool
}

// Reranker runs a higher-precision joint (query, passage) scoring pass
// over the top fused candidates. Backend unavailability is a
// degradation, not a hard failure.
type Reranker struct {
	backend driven.RerankBackend
	config  driven.ConfigStore
}

// NewReranker creates a reranker. The backend is optional (can be nil).
func NewReranker(backend driven.RerankBackend, config driven.ConfigStore) *Reranker {
	return &Reranker{
		backend: backend,
		config:  config,
	}
}

// Rerank reorders candidates by joint relevance score. When the backend
// is nil, disabled by configuration, or fails, the fused order passes
// through unchanged with Unreranked set so telemetry records the
// degradation.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.Candidate,
) RerankOutcome {
	if len(candidates) == 0 {
		return RerankOutcome{Candidates: candidates}
	}

	if r.backend == nil || !r.config.Engine().RerankerEnabled {
		logger.Debug("Reranker disabled, passing fused order through")
		return RerankOutcome{Candidates: candidates, Unreranked: true}
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Chunk.Content
	}

	scores, err := r.backend.Score(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		logger.Warn("Rerank backend unavailable, passing fused order through: %v", err)
		return RerankOutcome{Candidates: candidates, Unreranked: true}
	}

	reranked := make([]domain.Candidate, len(candidates))
	copy(reranked, candidates)
	order := make([]int, len(reranked))
	for i := range order {
		order[i] = i
	}

	// Stable on the original fused order so equal rerank scores keep
	// their fused ranking.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]domain.Candidate, len(reranked))
	for i, idx := range order {
		out[i] = reranked[idx]
	}

	logger.Debug("Reranked %d candidates via %s", len(out), r.backend.ModelName())
	return RerankOutcome{Candidates: out}
}
