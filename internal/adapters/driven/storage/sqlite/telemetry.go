package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// telemetrySink implements driven.TelemetrySink as an append-only table.
type telemetrySink struct {
	store *Store
}

var _ driven.TelemetrySink = (*telemetrySink)(nil)

// Record appends one search event.
func (s *telemetrySink) Record(ctx context.Context, event domain.SearchEvent) error {
	countsJSON, err := json.Marshal(event.Counts)
	if err != nil {
		return err
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO search_events
			(query, method, strategy, confidence, latency_ms, counts, unreranked, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.Query, string(event.Method), string(event.Strategy), event.Confidence,
		event.LatencyMS, string(countsJSON), event.Unreranked, event.Error, event.CreatedAt)

	if err != nil {
		return &domain.StoreUnavailableError{Op: "record search event", Err: err}
	}
	return nil
}
