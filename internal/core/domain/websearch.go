package domain

import "time"

// WebResult is one hit from the external web search provider.
type WebResult struct {
	// Title is the page title.
	Title string

	// URL is the page location.
	URL string

	// Snippet is the provider's excerpt for the hit.
	Snippet string
}

// WebCacheEntry is a TTL-bounded cache record for a normalised web query.
type WebCacheEntry struct {
	// QueryHash is the SHA-256 of the normalised query (cache key).
	QueryHash string

	// NormalizedQuery is the lowercased, whitespace-collapsed query.
	NormalizedQuery string

	// Results are the cached provider hits.
	Results []WebResult

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time

	// HitCount is how many times the entry has been served.
	HitCount int
}

// Expired reports whether the entry is past its TTL at the given time.
func (e WebCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
