package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// webCacheStore implements driven.WebCacheStore.
type webCacheStore struct {
	store *Store
}

var _ driven.WebCacheStore = (*webCacheStore)(nil)

// Get returns the entry for a query hash and increments its hit
// counter. Expiry is the caller's decision; stale entries are still
// returned so the augmenter can replace them in place.
func (s *webCacheStore) Get(ctx context.Context, queryHash string) (*domain.WebCacheEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT query_hash, normalized_query, results, created_at, expires_at, hit_count
		FROM web_search_cache WHERE query_hash = ?
	`, queryHash)

	var entry domain.WebCacheEntry
	var resultsJSON string
	if err := row.Scan(&entry.QueryHash, &entry.NormalizedQuery, &resultsJSON,
		&entry.CreatedAt, &entry.ExpiresAt, &entry.HitCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreUnavailableError{Op: "get web cache entry", Err: err}
	}

	if err := json.Unmarshal([]byte(resultsJSON), &entry.Results); err != nil {
		return nil, fmt.Errorf("unmarshaling cached results: %w", err)
	}

	if _, err := s.store.db.ExecContext(ctx, `
		UPDATE web_search_cache SET hit_count = hit_count + 1 WHERE query_hash = ?
	`, queryHash); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "bump web cache hit count", Err: err}
	}
	entry.HitCount++

	return &entry, nil
}

// Put stores or replaces an entry.
func (s *webCacheStore) Put(ctx context.Context, entry domain.WebCacheEntry) error {
	resultsJSON, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO web_search_cache
			(query_hash, normalized_query, results, created_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash) DO UPDATE SET
			normalized_query = excluded.normalized_query,
			results = excluded.results,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hit_count = excluded.hit_count
	`, entry.QueryHash, entry.NormalizedQuery, string(resultsJSON),
		entry.CreatedAt, entry.ExpiresAt, entry.HitCount)

	if err != nil {
		return &domain.StoreUnavailableError{Op: "put web cache entry", Err: err}
	}
	return nil
}

// Purge removes entries that expired before the given time.
func (s *webCacheStore) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM web_search_cache WHERE expires_at <= ?", before)
	if err != nil {
		return 0, &domain.StoreUnavailableError{Op: "purge web cache", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StoreUnavailableError{Op: "purge web cache", Err: err}
	}
	return int(n), nil
}
