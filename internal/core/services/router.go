package services

import "github.com/custodia-labs/sercha-answers/internal/core/domain"

// RouteDecision is the confidence router's output for one query.
type RouteDecision struct {
	// Strategy is the chosen answering strategy kind.
	Strategy domain.StrategyKind

	// Confidence is the scalar confidence that drove the choice.
	Confidence float64
}

// RouteConfidence computes a scalar confidence from the retrieval
// signal. It is a pure function: identical inputs always yield the
// same value, and the value varies with the query's actual evidence
// rather than clamping to a constant.
//
// The three signals:
//   - top: the best candidate's fused score, the dominant term.
//   - spread: top minus the k-th candidate's score. A wide spread means
//     one dominant match; a narrow spread means ambiguous coverage.
//   - count: how many candidates cleared the threshold at all.
func RouteConfidence(top, spread float64, count int) float64 {
	if count == 0 {
		return 0
	}

	confidence := 0.6*clamp01(top) + 0.25*clamp01(spread)

	// Saturating count term: 1 candidate contributes little, 5+ the
	// full 0.15.
	countTerm := float64(count) / 5.0
	confidence += 0.15 * clamp01(countTerm)

	return clamp01(confidence)
}

// Route picks the answering strategy for a query from its retrieval
// signal and the configured thresholds. Pure and side-effect free so it
// is independently testable.
func Route(top, spread float64, count int, cfg domain.EngineConfig) RouteDecision {
	confidence := RouteConfidence(top, spread, count)

	switch {
	case confidence < cfg.RouterLowThreshold:
		return RouteDecision{Strategy: domain.StrategyWebOnly, Confidence: confidence}
	case confidence >= cfg.RouterHighThreshold:
		return RouteDecision{Strategy: domain.StrategyDocumentOnly, Confidence: confidence}
	default:
		return RouteDecision{Strategy: domain.StrategyHybrid, Confidence: confidence}
	}
}

// RetrievalSignal extracts (top, spread, count) from a ranked candidate
// list, the shape Route consumes.
func RetrievalSignal(candidates []domain.Candidate) (top, spread float64, count int) {
	count = len(candidates)
	if count == 0 {
		return 0, 0, 0
	}

	top = candidates[0].FusedScore
	spread = top - candidates[count-1].FusedScore
	return top, spread, count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
