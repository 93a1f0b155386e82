package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// WebAugmenter performs cached, privacy-preserving external search.
// A web-search failure never aborts an otherwise-answerable query:
// every failure path returns an empty result set.
type WebAugmenter struct {
	provider driven.WebSearchProvider
	cache    driven.WebCacheStore
	config   driven.ConfigStore
	now      func() time.Time
}

// NewWebAugmenter creates a web augmenter. The provider is optional
// (can be nil); without it Search always returns empty results.
func NewWebAugmenter(
	provider driven.WebSearchProvider,
	cache driven.WebCacheStore,
	config driven.ConfigStore,
) *WebAugmenter {
	return &WebAugmenter{
		provider: provider,
		cache:    cache,
		config:   config,
		now:      time.Now,
	}
}

// Search returns web results for the query, serving from the TTL cache
// when possible. Concurrent misses for the same query may both call the
// provider; the redundant call is accepted rather than serialising on a
// lock.
func (w *WebAugmenter) Search(ctx context.Context, query string) []domain.WebResult {
	normalized := NormalizeWebQuery(query)
	if normalized == "" {
		return nil
	}
	hash := webQueryHash(normalized)

	if w.cache != nil {
		entry, err := w.cache.Get(ctx, hash)
		if err == nil && !entry.Expired(w.now()) {
			logger.Debug("Web cache hit for %q (served %d times)", normalized, entry.HitCount)
			return entry.Results
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Web cache read failed: %v", err)
		}
	}

	if w.provider == nil {
		logger.Debug("No web search provider configured")
		return nil
	}

	results, err := w.provider.Search(ctx, normalized)
	if err != nil {
		// Swallowed to an empty set: a web failure must never fail a
		// HYBRID answer that has document evidence.
		logger.Warn("Web search failed, returning empty results: %v", err)
		return nil
	}

	logger.Info("Web search returned %d results for %q", len(results), normalized)

	if w.cache != nil {
		now := w.now()
		entry := domain.WebCacheEntry{
			QueryHash:       hash,
			NormalizedQuery: normalized,
			Results:         results,
			CreatedAt:       now,
			ExpiresAt:       now.Add(w.config.Engine().WebCacheTTL),
		}
		if err := w.cache.Put(ctx, entry); err != nil {
			logger.Warn("Web cache write failed: %v", err)
		}
	}

	return results
}

// NormalizeWebQuery lowercases and collapses whitespace so equivalent
// queries share one cache entry.
func NormalizeWebQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// webQueryHash is the cache key for a normalised query.
func webQueryHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
