package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the config directory and
// reloaded when the file changes on disk.
type ConfigStore struct {
	mu          sync.RWMutex
	filePath    string
	engine      domain.EngineConfig
	subscribers []func(domain.EngineConfig)

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  sync.Once
}

// fileConfig is the on-disk TOML shape. Durations are strings in Go
// duration syntax ("15m", "30s"). Zero or absent values fall back to
// the shipped defaults.
type fileConfig struct {
	SimilarityThreshold   float64 `toml:"similarity_threshold"`
	VectorWeight          float64 `toml:"vector_weight"`
	LexicalWeight         float64 `toml:"lexical_weight"`
	IdentifierBoost       float64 `toml:"identifier_boost"`
	RouterLowThreshold    float64 `toml:"router_low_threshold"`
	RouterHighThreshold   float64 `toml:"router_high_threshold"`
	RerankerEnabled       *bool   `toml:"reranker_enabled"`
	WebCacheTTL           string  `toml:"web_cache_ttl"`
	ProbeInterval         string  `toml:"probe_interval"`
	FailureThreshold      int     `toml:"failure_threshold"`
	RecoveryThreshold     int     `toml:"recovery_threshold"`
	MaxCandidatesPerStage int     `toml:"max_candidates_per_stage"`
	MaxContextChunks      int     `toml:"max_context_chunks"`
}

// NewConfigStore creates a new TOML-based config store and starts
// watching the file for changes.
// If configDir is empty, defaults to ~/.sercha-answers.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sercha-answers")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		engine:   domain.DefaultEngineConfig(),
		done:     make(chan struct{}),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save
	// and a file-level watch would go stale.
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

// Engine returns the current engine configuration snapshot.
func (s *ConfigStore) Engine() domain.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Subscribe registers a callback invoked after each successful reload.
func (s *ConfigStore) Subscribe(fn func(domain.EngineConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Close stops the file watcher.
func (s *ConfigStore) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

// watchLoop reloads the config when the file changes. A broken edit
// keeps the previous configuration in effect.
func (s *ConfigStore) watchLoop() {
	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.load(); err != nil {
				logger.Warn("Config reload failed, keeping previous values: %v", err)
				continue
			}
			logger.Info("Config reloaded from %s", s.filePath)
			s.notify()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

// notify invokes all subscribers with the current snapshot.
func (s *ConfigStore) notify() {
	s.mu.RLock()
	engine := s.engine
	subscribers := make([]func(domain.EngineConfig), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subscribers {
		fn(engine)
	}
}

// load reads and validates the TOML file. A missing file keeps the
// shipped defaults.
func (s *ConfigStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	engine, err := mergeConfig(domain.DefaultEngineConfig(), raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// mergeConfig overlays file values onto the defaults and validates the
// result.
func mergeConfig(engine domain.EngineConfig, raw fileConfig) (domain.EngineConfig, error) {
	if raw.SimilarityThreshold > 0 {
		engine.SimilarityThreshold = raw.SimilarityThreshold
	}
	if raw.VectorWeight > 0 {
		engine.VectorWeight = raw.VectorWeight
	}
	if raw.LexicalWeight > 0 {
		engine.LexicalWeight = raw.LexicalWeight
	}
	if raw.IdentifierBoost > 0 {
		engine.IdentifierBoost = raw.IdentifierBoost
	}
	if raw.RouterLowThreshold > 0 {
		engine.RouterLowThreshold = raw.RouterLowThreshold
	}
	if raw.RouterHighThreshold > 0 {
		engine.RouterHighThreshold = raw.RouterHighThreshold
	}
	if raw.RerankerEnabled != nil {
		engine.RerankerEnabled = *raw.RerankerEnabled
	}
	if raw.WebCacheTTL != "" {
		ttl, err := time.ParseDuration(raw.WebCacheTTL)
		if err != nil {
			return engine, fmt.Errorf("web_cache_ttl: %w", err)
		}
		engine.WebCacheTTL = ttl
	}
	if raw.ProbeInterval != "" {
		interval, err := time.ParseDuration(raw.ProbeInterval)
		if err != nil {
			return engine, fmt.Errorf("probe_interval: %w", err)
		}
		engine.ProbeInterval = interval
	}
	if raw.FailureThreshold > 0 {
		engine.FailureThreshold = raw.FailureThreshold
	}
	if raw.RecoveryThreshold > 0 {
		engine.RecoveryThreshold = raw.RecoveryThreshold
	}
	if raw.MaxCandidatesPerStage > 0 {
		engine.MaxCandidatesPerStage = raw.MaxCandidatesPerStage
	}
	if raw.MaxContextChunks > 0 {
		engine.MaxContextChunks = raw.MaxContextChunks
	}

	if engine.RouterLowThreshold >= engine.RouterHighThreshold {
		return engine, fmt.Errorf("router_low_threshold (%.2f) must be below router_high_threshold (%.2f)",
			engine.RouterLowThreshold, engine.RouterHighThreshold)
	}

	return engine, nil
}
