package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Exact-identifier patterns that boost the lexical fusion weight:
// acronyms (RNI, OAuth2 is not one), version strings (v2.3.1, 10.4),
// and error codes (E1042, ERR_TIMEOUT, 0x80004005).
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]{2,6}\b`),
	regexp.MustCompile(`\bv?\d+\.\d+(\.\d+)*\b`),
	regexp.MustCompile(`\b(?:[A-Z]+[-_]\d+|E\d{3,}|ERR_[A-Z_]+|0x[0-9A-Fa-f]{4,})\b`),
}

// embedder is the slice of the pool the retriever needs.
type embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever pulls candidates from the chunk store through concurrent
// vector and lexical legs and fuses them into one ranked list.
type Retriever struct {
	store  driven.ChunkStore
	pool   embedder
	config driven.ConfigStore
}

// NewRetriever creates a hybrid retriever.
func NewRetriever(store driven.ChunkStore, pool embedder, config driven.ConfigStore) *Retriever {
	return &Retriever{
		store:  store,
		pool:   pool,
		config: config,
	}
}

// Retrieve returns up to k fused candidates for the query.
//
// Both legs run concurrently and each may return up to 2k candidates.
// Zero lexical hits still yields a full vector-only ranking. When no
// embedding backend is available the retriever degrades to lexical-only
// with a logged event rather than blocking the query.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, k int, filters domain.RetrievalFilters,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, k=%d", query, k)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrInvalidInput)
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	cfg := r.config.Engine()
	if k <= 0 {
		k = cfg.MaxCandidatesPerStage / 2
	}
	legLimit := 2 * k

	var vectorCands, lexicalCands []domain.Candidate
	var vectorErr, lexicalErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vectorCands, vectorErr = r.vectorLeg(ctx, query, legLimit, cfg, filters)
	}()

	go func() {
		defer wg.Done()
		lexicalCands, lexicalErr = r.store.LexicalSearch(ctx, query, legLimit, filters)
	}()

	wg.Wait()

	if vectorErr != nil && lexicalErr != nil {
		return nil, fmt.Errorf("retrieve: vector=%w, lexical=%w", vectorErr, lexicalErr)
	}

	result := &domain.RetrievalResult{
		Method: domain.RetrievalHybrid,
		Counts: domain.CandidateCounts{
			Vector:  len(vectorCands),
			Lexical: len(lexicalCands),
		},
	}

	switch {
	case vectorErr != nil:
		if !errors.Is(vectorErr, domain.ErrBackendUnavailable) {
			return nil, fmt.Errorf("retrieve: %w", vectorErr)
		}
		logger.Warn("Vector leg unavailable, degrading to lexical-only: %v", vectorErr)
		result.Method = domain.RetrievalLexicalOnly
		result.Degraded = true
		result.Candidates = rankLexicalOnly(lexicalCands, k)
		result.Counts.Fused = len(result.Candidates)
		return result, nil

	case lexicalErr != nil:
		logger.Warn("Lexical leg failed, using vector-only ranking: %v", lexicalErr)
		result.Method = domain.RetrievalVectorOnly
		result.Degraded = true
		result.Candidates = rankVectorOnly(vectorCands, k)
		result.Counts.Fused = len(result.Candidates)
		return result, nil
	}

	if len(lexicalCands) == 0 {
		result.Method = domain.RetrievalVectorOnly
	}

	vw, lw := r.fusionWeights(query, cfg)
	logger.Debug("Fusion weights: vector=%.2f lexical=%.2f", vw, lw)

	result.Candidates = fuse(vectorCands, lexicalCands, vw, lw, k)
	result.Counts.Fused = len(result.Candidates)
	logger.Info("Retrieved %d candidates (%d vector, %d lexical)",
		len(result.Candidates), len(vectorCands), len(lexicalCands))

	return result, nil
}

// vectorLeg embeds the query and runs similarity search.
func (r *Retriever) vectorLeg(
	ctx context.Context, query string, limit int,
	cfg domain.EngineConfig, filters domain.RetrievalFilters,
) ([]domain.Candidate, error) {
	vectors, err := r.pool.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	return r.store.SimilaritySearch(ctx, vectors[0], limit, cfg.SimilarityThreshold, filters)
}

// fusionWeights returns normalised vector/lexical weights, boosting the
// lexical side when the query carries exact identifiers.
func (r *Retriever) fusionWeights(query string, cfg domain.EngineConfig) (float64, float64) {
	vw, lw := cfg.VectorWeight, cfg.LexicalWeight
	if containsIdentifier(query) {
		lw += cfg.IdentifierBoost
	}

	total := vw + lw
	if total <= 0 {
		return 0.5, 0.5
	}
	return vw / total, lw / total
}

// containsIdentifier runs the lightweight pattern check for acronyms,
// version strings and error codes.
func containsIdentifier(query string) bool {
	for _, re := range identifierPatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// validateFilters rejects malformed retrieval filters.
func validateFilters(filters domain.RetrievalFilters) error {
	switch filters.Privacy {
	case "", domain.PrivacyFilterPublic, domain.PrivacyFilterAll:
	default:
		if !domain.PrivacyLevel(filters.Privacy).Valid() {
			return &domain.InvalidFilterError{
				Field:  "privacy",
				Reason: fmt.Sprintf("unknown level %q", filters.Privacy),
			}
		}
	}
	return nil
}

// fuse combines both legs with a weighted linear combination of
// normalised scores, deduplicates by chunk ID keeping the higher fused
// score, and truncates to k.
func fuse(vectorCands, lexicalCands []domain.Candidate, vw, lw float64, k int) []domain.Candidate {
	normalizeVector(vectorCands)
	normalizeLexical(lexicalCands)

	byID := make(map[string]domain.Candidate, len(vectorCands)+len(lexicalCands))

	for _, c := range vectorCands {
		c.FusedScore = vw * c.VectorScore
		byID[c.Chunk.ID] = c
	}

	for _, c := range lexicalCands {
		if existing, ok := byID[c.Chunk.ID]; ok {
			existing.LexicalScore = c.LexicalScore
			existing.FusedScore = vw*existing.VectorScore + lw*c.LexicalScore
			byID[c.Chunk.ID] = existing
			continue
		}
		c.FusedScore = lw * c.LexicalScore
		byID[c.Chunk.ID] = c
	}

	fused := make([]domain.Candidate, 0, len(byID))
	for _, c := range byID {
		fused = append(fused, c)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].FusedScore > fused[j].FusedScore
	})

	return truncate(fused, k)
}

// normalizeVector leaves cosine similarities as-is; they are already 0-1.
func normalizeVector(cands []domain.Candidate) {
	for i := range cands {
		if cands[i].VectorScore < 0 {
			cands[i].VectorScore = 0
		} else if cands[i].VectorScore > 1 {
			cands[i].VectorScore = 1
		}
	}
}

// normalizeLexical rescales lexical scores into 0-1 by the leg maximum.
func normalizeLexical(cands []domain.Candidate) {
	var maxScore float64
	for _, c := range cands {
		if c.LexicalScore > maxScore {
			maxScore = c.LexicalScore
		}
	}
	if maxScore <= 0 {
		return
	}
	for i := range cands {
		cands[i].LexicalScore /= maxScore
	}
}

// rankVectorOnly turns raw vector hits into a fused-score ranking.
func rankVectorOnly(cands []domain.Candidate, k int) []domain.Candidate {
	normalizeVector(cands)
	for i := range cands {
		cands[i].FusedScore = cands[i].VectorScore
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FusedScore > cands[j].FusedScore
	})
	return truncate(cands, k)
}

// rankLexicalOnly turns raw lexical hits into a fused-score ranking.
func rankLexicalOnly(cands []domain.Candidate, k int) []domain.Candidate {
	normalizeLexical(cands)
	for i := range cands {
		cands[i].FusedScore = cands[i].LexicalScore
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FusedScore > cands[j].FusedScore
	})
	return truncate(cands, k)
}

// truncate caps a ranked list at k.
func truncate(cands []domain.Candidate, k int) []domain.Candidate {
	if len(cands) <= k {
		return cands
	}
	return cands[:k]
}
