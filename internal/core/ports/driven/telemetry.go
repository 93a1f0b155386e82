package driven

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// TelemetrySink records per-query method, confidence and latency.
// Append-only and write-only: the engine never reads events back, and
// a sink failure is logged, never propagated to the caller.
type TelemetrySink interface {
	// Record appends one search event.
	Record(ctx context.Context, event domain.SearchEvent) error
}
