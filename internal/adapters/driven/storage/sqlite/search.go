package sqlite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// chunkColumns is the select list shared by both search legs.
const chunkColumns = `c.id, c.document_id, c.position, c.kind, c.page, c.content,
	c.privacy, c.doc_type, c.product, c.section_title, c.language, c.token_count`

// SimilaritySearch returns up to k chunks by descending cosine
// similarity to the query vector. Vectors are scored in Go over the
// stored blobs; rows whose vector width differs from the query are
// skipped rather than failing the whole search.
func (s *chunkStore) SimilaritySearch(
	ctx context.Context, vector []float32, k int,
	threshold float64, filters domain.RetrievalFilters,
) ([]domain.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("similarity search: empty query vector: %w", domain.ErrInvalidInput)
	}
	where, args, err := filterClauses(filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s, e.vector
		FROM chunks c
		JOIN embeddings e ON e.chunk_id = c.id
		WHERE %s
	`, chunkColumns, strings.Join(where, " AND "))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "similarity search", Err: err}
	}
	defer rows.Close()

	var candidates []domain.Candidate //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var kind, privacy string
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &kind, &chunk.Page,
			&chunk.Content, &privacy, &chunk.DocType, &chunk.Product,
			&chunk.SectionTitle, &chunk.Language, &chunk.TokenCount, &blob); err != nil {
			return nil, &domain.StoreUnavailableError{Op: "scan similarity row", Err: err}
		}
		chunk.Kind = domain.ChunkKind(kind)
		chunk.Privacy = domain.PrivacyLevel(privacy)

		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(vector) {
			continue
		}
		score := cosineSimilarity(vector, stored)
		if score < threshold {
			continue
		}
		candidates = append(candidates, domain.Candidate{Chunk: chunk, VectorScore: score})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "similarity search", Err: err}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].VectorScore > candidates[j].VectorScore
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// LexicalSearch returns up to k chunks by descending term-match score.
// SQLite prefilters with LIKE; term frequency is counted in Go so the
// score favours passages that repeat the query terms.
func (s *chunkStore) LexicalSearch(
	ctx context.Context, text string, k int, filters domain.RetrievalFilters,
) ([]domain.Candidate, error) {
	terms := queryTerms(text)
	if len(terms) == 0 {
		return nil, fmt.Errorf("lexical search: empty query: %w", domain.ErrInvalidInput)
	}
	where, args, err := filterClauses(filters)
	if err != nil {
		return nil, err
	}

	likes := make([]string, len(terms))
	for i, term := range terms {
		likes[i] = "c.content LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(term)+"%")
	}
	where = append(where, "("+strings.Join(likes, " OR ")+")")

	query := fmt.Sprintf(`
		SELECT %s
		FROM chunks c
		WHERE %s
	`, chunkColumns, strings.Join(where, " AND "))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "lexical search", Err: err}
	}
	defer rows.Close()

	var candidates []domain.Candidate //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		score := termFrequencyScore(chunk.Content, terms)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, domain.Candidate{Chunk: *chunk, LexicalScore: score})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "lexical search", Err: err}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LexicalScore > candidates[j].LexicalScore
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// filterClauses builds the WHERE fragment for retrieval filters.
// Privacy defaults to public-only; widening it is the caller's call.
func filterClauses(filters domain.RetrievalFilters) ([]string, []any, error) {
	var where []string
	var args []any

	switch filters.Privacy {
	case "", domain.PrivacyFilterPublic:
		where = append(where, "c.privacy = ?")
		args = append(args, string(domain.PrivacyPublic))
	case domain.PrivacyFilterAll:
		where = append(where, "1=1")
	default:
		return nil, nil, &domain.InvalidFilterError{
			Field:  "privacy",
			Reason: fmt.Sprintf("unknown filter %q", filters.Privacy),
		}
	}

	if filters.DocType != "" {
		where = append(where, "c.doc_type = ?")
		args = append(args, filters.DocType)
	}
	if filters.Product != "" {
		where = append(where, "c.product = ?")
		args = append(args, filters.Product)
	}

	return where, args, nil
}

// cosineSimilarity computes the cosine of two equal-length vectors,
// clamped to [0, 1] so downstream fusion needs no renormalisation.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// queryTerms splits a query into lowercase terms, dropping one-letter
// noise.
func queryTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]`)
		if len(f) < 2 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// termFrequencyScore counts query-term occurrences, dampened by chunk
// length so short focused passages outrank long rambling ones.
func termFrequencyScore(content string, terms []string) float64 {
	lowered := strings.ToLower(content)
	var hits int
	for _, term := range terms {
		hits += strings.Count(lowered, term)
	}
	if hits == 0 {
		return 0
	}
	words := len(strings.Fields(lowered))
	if words == 0 {
		words = 1
	}
	return float64(hits) / math.Sqrt(float64(words))
}

// escapeLike escapes LIKE wildcards in a user-supplied term.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, "%", `\%`)
	term = strings.ReplaceAll(term, "_", `\_`)
	return term
}
