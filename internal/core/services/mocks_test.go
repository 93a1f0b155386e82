package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockConfigStore implements driven.ConfigStore with a fixed config.
type mockConfigStore struct {
	cfg domain.EngineConfig
}

func newMockConfig() *mockConfigStore {
	return &mockConfigStore{cfg: domain.DefaultEngineConfig()}
}

func (m *mockConfigStore) Engine() domain.EngineConfig         { return m.cfg }
func (m *mockConfigStore) Subscribe(func(domain.EngineConfig)) {}
func (m *mockConfigStore) Close() error                        { return nil }

// mockBackend implements driven.EmbeddingBackend for testing.
type mockBackend struct {
	name     string
	vector   []float32
	dims     int
	latency  time.Duration
	embedErr error
	probeErr error

	mu         sync.Mutex
	embedCalls int
	probeCalls int
}

func (m *mockBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()

	if m.latency > 0 {
		time.Sleep(m.latency)
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockBackend) Dimensions() int { return m.dims }
func (m *mockBackend) Name() string    { return m.name }

func (m *mockBackend) Probe(_ context.Context) error {
	m.mu.Lock()
	m.probeCalls++
	m.mu.Unlock()
	return m.probeErr
}

func (m *mockBackend) Close() error { return nil }

func (m *mockBackend) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// mockChunkStore implements driven.ChunkStore for testing.
type mockChunkStore struct {
	similarHits []domain.Candidate
	lexicalHits []domain.Candidate
	similarErr  error
	lexicalErr  error

	documents map[string]*domain.Document
	chunks    map[string]*domain.Chunk
	models    map[string]*domain.EmbeddingModel
	upsertErr error

	mu          sync.Mutex
	upsertCalls int
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{
		documents: make(map[string]*domain.Document),
		chunks:    make(map[string]*domain.Chunk),
		models:    make(map[string]*domain.EmbeddingModel),
	}
}

func (m *mockChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockChunkStore) GetDocumentByChecksum(_ context.Context, checksum string) (*domain.Document, error) {
	for _, doc := range m.documents {
		if doc.Checksum == checksum {
			return doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockChunkStore) ReclassifyDocument(_ context.Context, doc *domain.Document) error {
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockChunkStore) DeleteDocument(_ context.Context, id string) error {
	delete(m.documents, id)
	return nil
}

func (m *mockChunkStore) UpsertChunk(_ context.Context, chunk domain.Chunk, _ []domain.Embedding) error {
	m.mu.Lock()
	m.upsertCalls++
	m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}
	c := chunk
	m.chunks[chunk.ID] = &c
	return nil
}

func (m *mockChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return chunk, nil
}

func (m *mockChunkStore) CountChunks(_ context.Context, documentID string) (int, error) {
	n := 0
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (m *mockChunkStore) SimilaritySearch(
	_ context.Context, _ []float32, k int, _ float64, _ domain.RetrievalFilters,
) ([]domain.Candidate, error) {
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	if k > len(m.similarHits) {
		return m.similarHits, nil
	}
	return m.similarHits[:k], nil
}

func (m *mockChunkStore) LexicalSearch(
	_ context.Context, _ string, k int, _ domain.RetrievalFilters,
) ([]domain.Candidate, error) {
	if m.lexicalErr != nil {
		return nil, m.lexicalErr
	}
	if k > len(m.lexicalHits) {
		return m.lexicalHits, nil
	}
	return m.lexicalHits[:k], nil
}

func (m *mockChunkStore) RegisterModel(_ context.Context, model domain.EmbeddingModel) error {
	mdl := model
	m.models[model.Name] = &mdl
	return nil
}

func (m *mockChunkStore) GetModel(_ context.Context, name string) (*domain.EmbeddingModel, error) {
	model, ok := m.models[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return model, nil
}

func (m *mockChunkStore) Close() error { return nil }

// mockRerankBackend implements driven.RerankBackend for testing.
type mockRerankBackend struct {
	scores   []float64
	scoreErr error
}

func (m *mockRerankBackend) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	if m.scoreErr != nil {
		return nil, m.scoreErr
	}
	if len(m.scores) >= len(passages) {
		return m.scores[:len(passages)], nil
	}
	return m.scores, nil
}

func (m *mockRerankBackend) ModelName() string { return "mock-reranker" }
func (m *mockRerankBackend) Close() error      { return nil }

// mockWebProvider implements driven.WebSearchProvider for testing.
type mockWebProvider struct {
	results   []domain.WebResult
	searchErr error

	mu    sync.Mutex
	calls int
}

func (m *mockWebProvider) Search(_ context.Context, _ string) ([]domain.WebResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockWebProvider) Close() error { return nil }

func (m *mockWebProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockWebCache implements driven.WebCacheStore in memory, mirroring the
// hit-count behaviour of the SQLite adapter.
type mockWebCache struct {
	mu      sync.Mutex
	entries map[string]*domain.WebCacheEntry
}

func newMockWebCache() *mockWebCache {
	return &mockWebCache{entries: make(map[string]*domain.WebCacheEntry)}
}

func (m *mockWebCache) Get(_ context.Context, queryHash string) (*domain.WebCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[queryHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.HitCount++
	out := *entry
	return &out, nil
}

func (m *mockWebCache) Put(_ context.Context, entry domain.WebCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.QueryHash] = &entry
	return nil
}

func (m *mockWebCache) Purge(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for hash, entry := range m.entries {
		if entry.Expired(before) {
			delete(m.entries, hash)
			n++
		}
	}
	return n, nil
}

// mockGenerator implements driven.Generator for testing.
type mockGenerator struct {
	tokens      []string
	generateErr error
}

func (m *mockGenerator) GenerateStream(
	ctx context.Context, _ []domain.ChatMessage, onToken func(string) error,
) error {
	if m.generateErr != nil {
		return m.generateErr
	}
	for _, tok := range m.tokens {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := onToken(tok); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGenerator) ModelName() string             { return "mock-generator" }
func (m *mockGenerator) Probe(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                  { return nil }

// mockTelemetry implements driven.TelemetrySink, recording events.
type mockTelemetry struct {
	mu     sync.Mutex
	events []domain.SearchEvent
}

func (m *mockTelemetry) Record(_ context.Context, event domain.SearchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockTelemetry) last() (domain.SearchEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return domain.SearchEvent{}, false
	}
	return m.events[len(m.events)-1], true
}

// Interface conformance checks.
var (
	_ driven.ConfigStore       = (*mockConfigStore)(nil)
	_ driven.EmbeddingBackend  = (*mockBackend)(nil)
	_ driven.ChunkStore        = (*mockChunkStore)(nil)
	_ driven.RerankBackend     = (*mockRerankBackend)(nil)
	_ driven.WebSearchProvider = (*mockWebProvider)(nil)
	_ driven.WebCacheStore     = (*mockWebCache)(nil)
	_ driven.Generator         = (*mockGenerator)(nil)
	_ driven.TelemetrySink     = (*mockTelemetry)(nil)
)
