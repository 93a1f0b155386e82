package driven

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// Generator produces streamed text from a prompt and conversation
// context. Used by the answer synthesizer.
type Generator interface {
	// GenerateStream starts generation and delivers text fragments
	// through onToken as they arrive. It returns when generation
	// completes, fails, or ctx is cancelled. On cancellation no
	// further fragments are delivered; work already dispatched to a
	// backend with no cancellation primitive cannot be recalled, but
	// the engine stops consuming.
	GenerateStream(ctx context.Context, messages []domain.ChatMessage,
		onToken func(token string) error) error

	// ModelName returns the name of the generation model.
	ModelName() string

	// Probe validates the service is reachable.
	Probe(ctx context.Context) error

	// Close releases resources.
	Close() error
}
