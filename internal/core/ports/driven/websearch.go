package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// WebSearchProvider performs a privacy-preserving external search.
type WebSearchProvider interface {
	// Search returns ranked web results for the query.
	Search(ctx context.Context, query string) ([]domain.WebResult, error)

	// Close releases resources.
	Close() error
}

// WebCacheStore persists TTL-bounded web search results keyed by
// normalised query hash. Concurrent misses for the same query may both
// call the provider rather than serialise; the duplicate cost is accepted.
type WebCacheStore interface {
	// Get returns the entry for a query hash, or domain.ErrNotFound.
	// A successful get increments the entry's hit counter.
	Get(ctx context.Context, queryHash string) (*domain.WebCacheEntry, error)

	// Put stores or replaces an entry.
	Put(ctx context.Context, entry domain.WebCacheEntry) error

	// Purge removes entries that expired before the given time and
	// returns how many were removed.
	Purge(ctx context.Context, before time.Time) (int, error)
}
