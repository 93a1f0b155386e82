package driven

import "github.com/custodia-labs/sercha-answers/internal/core/domain"

// ConfigStore supplies the engine's runtime configuration.
// Router thresholds and fusion weights are tunable without redeploy,
// so readers must call Engine() per query rather than caching.
type ConfigStore interface {
	// Engine returns the current configuration snapshot.
	Engine() domain.EngineConfig

	// Subscribe registers a callback invoked after the configuration
	// changes on disk. Used for logging; readers stay current simply
	// by calling Engine().
	Subscribe(fn func(domain.EngineConfig))

	// Close stops watching for changes.
	Close() error
}
