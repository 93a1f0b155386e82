package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(id, checksum string) *domain.Document {
	return &domain.Document{
		ID:        id,
		Checksum:  checksum,
		DocType:   "manual",
		Product:   "gateway",
		Version:   "2.3",
		Category:  "networking",
		Privacy:   domain.PrivacyPublic,
		CreatedAt: time.Now().UTC(),
	}
}

func testChunk(id, documentID string, position int, content string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: documentID,
		Position:   position,
		Kind:       domain.ChunkKindText,
		Content:    content,
		Privacy:    domain.PrivacyPublic,
		DocType:    "manual",
		Product:    "gateway",
		TokenCount: 10,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	doc := testDocument("doc-1", "sum-1")
	doc.Metadata = map[string]any{"source": "upload"}
	require.NoError(t, chunks.SaveDocument(ctx, doc))

	got, err := chunks.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "sum-1", got.Checksum)
	assert.Equal(t, domain.PrivacyPublic, got.Privacy)
	assert.Equal(t, "upload", got.Metadata["source"])

	byChecksum, err := chunks.GetDocumentByChecksum(ctx, "sum-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", byChecksum.ID)

	_, err = chunks.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertChunkIsIdempotentForSameContent(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.SaveDocument(ctx, testDocument("doc-1", "sum-1")))
	chunk := testChunk("chunk-1", "doc-1", 0, "the same passage")

	require.NoError(t, chunks.UpsertChunk(ctx, chunk, nil))
	require.NoError(t, chunks.UpsertChunk(ctx, chunk, nil))

	count, err := chunks.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertChunkRejectsConflictingContent(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.SaveDocument(ctx, testDocument("doc-1", "sum-1")))
	require.NoError(t, chunks.UpsertChunk(ctx, testChunk("chunk-1", "doc-1", 0, "original"), nil))

	err := chunks.UpsertChunk(ctx, testChunk("chunk-2", "doc-1", 0, "different"), nil)

	var dup *domain.DuplicateChunkError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "doc-1", dup.DocumentID)
	assert.Equal(t, 0, dup.Position)
}

func TestDeleteDocumentCascadesToChunks(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.SaveDocument(ctx, testDocument("doc-1", "sum-1")))
	require.NoError(t, chunks.UpsertChunk(ctx, testChunk("chunk-1", "doc-1", 0, "body"), nil))

	require.NoError(t, chunks.DeleteDocument(ctx, "doc-1"))

	_, err := chunks.GetChunk(ctx, "chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReclassifyDocumentPropagatesTags(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.SaveDocument(ctx, testDocument("doc-1", "sum-1")))
	require.NoError(t, chunks.UpsertChunk(ctx, testChunk("chunk-1", "doc-1", 0, "body"), nil))

	doc := testDocument("doc-1", "sum-1")
	doc.DocType = "datasheet"
	doc.Privacy = domain.PrivacyPrivate
	require.NoError(t, chunks.ReclassifyDocument(ctx, doc))

	chunk, err := chunks.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "datasheet", chunk.DocType)
	assert.Equal(t, domain.PrivacyPrivate, chunk.Privacy)
}

func TestModelRegistry(t *testing.T) {
	store := newTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	model := domain.EmbeddingModel{ID: "m1", Name: "test-embed", Dimension: 4, Provider: "ollama"}
	require.NoError(t, chunks.RegisterModel(ctx, model))

	got, err := chunks.GetModel(ctx, "test-embed")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Dimension)

	_, err = chunks.GetModel(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func seedSearchCorpus(t *testing.T, store *Store) {
	t.Helper()
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.RegisterModel(ctx,
		domain.EmbeddingModel{ID: "m1", Name: "test-embed", Dimension: 2, Provider: "ollama"}))
	require.NoError(t, chunks.SaveDocument(ctx, testDocument("doc-1", "sum-1")))

	fixtures := []struct {
		chunk   domain.Chunk
		vector  []float32
		private bool
	}{
		{testChunk("chunk-a", "doc-1", 0, "RNI stands for Regional Network Interface"), []float32{1, 0}, false},
		{testChunk("chunk-b", "doc-1", 1, "installation manual for the edge gateway"), []float32{0.7, 0.7}, false},
		{testChunk("chunk-c", "doc-1", 2, "internal-only interface notes"), []float32{0.9, 0.1}, true},
	}
	for _, f := range fixtures {
		if f.private {
			f.chunk.Privacy = domain.PrivacyPrivate
		}
		require.NoError(t, chunks.UpsertChunk(ctx, f.chunk, []domain.Embedding{
			{ChunkID: f.chunk.ID, ModelID: "m1", Vector: f.vector},
		}))
	}
}

func TestSimilaritySearchRanksByCosine(t *testing.T) {
	store := newTestStore(t)
	seedSearchCorpus(t, store)

	candidates, err := store.ChunkStore().SimilaritySearch(
		context.Background(), []float32{1, 0}, 10, 0.5, domain.RetrievalFilters{})
	require.NoError(t, err)

	require.NotEmpty(t, candidates)
	assert.Equal(t, "chunk-a", candidates[0].Chunk.ID)
	assert.InDelta(t, 1.0, candidates[0].VectorScore, 1e-6)
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i].VectorScore, candidates[i-1].VectorScore)
	}
}

func TestSimilaritySearchDefaultsToPublicOnly(t *testing.T) {
	store := newTestStore(t)
	seedSearchCorpus(t, store)

	candidates, err := store.ChunkStore().SimilaritySearch(
		context.Background(), []float32{1, 0}, 10, 0, domain.RetrievalFilters{})
	require.NoError(t, err)

	for _, c := range candidates {
		assert.NotEqual(t, "chunk-c", c.Chunk.ID, "private chunks never leak by default")
	}

	widened, err := store.ChunkStore().SimilaritySearch(
		context.Background(), []float32{1, 0}, 10, 0,
		domain.RetrievalFilters{Privacy: domain.PrivacyFilterAll})
	require.NoError(t, err)
	assert.Greater(t, len(widened), len(candidates))
}

func TestSimilaritySearchRejectsMalformedFilters(t *testing.T) {
	store := newTestStore(t)
	seedSearchCorpus(t, store)

	_, err := store.ChunkStore().SimilaritySearch(
		context.Background(), []float32{1, 0}, 10, 0,
		domain.RetrievalFilters{Privacy: "secret"})

	var filterErr *domain.InvalidFilterError
	assert.ErrorAs(t, err, &filterErr)
}

func TestLexicalSearchMatchesTerms(t *testing.T) {
	store := newTestStore(t)
	seedSearchCorpus(t, store)

	candidates, err := store.ChunkStore().LexicalSearch(
		context.Background(), "regional network interface", 10, domain.RetrievalFilters{})
	require.NoError(t, err)

	require.NotEmpty(t, candidates)
	assert.Equal(t, "chunk-a", candidates[0].Chunk.ID)
	assert.Positive(t, candidates[0].LexicalScore)
}

func TestLexicalSearchReturnsEmptyOnNoMatch(t *testing.T) {
	store := newTestStore(t)
	seedSearchCorpus(t, store)

	candidates, err := store.ChunkStore().LexicalSearch(
		context.Background(), "zeppelin chromatography", 10, domain.RetrievalFilters{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestTelemetrySinkAppendsEvents(t *testing.T) {
	store := newTestStore(t)

	err := store.TelemetrySink().Record(context.Background(), domain.SearchEvent{
		Query:      "what is RNI",
		Method:     domain.RetrievalHybrid,
		Strategy:   domain.StrategyDocumentOnly,
		Confidence: 0.82,
		LatencyMS:  120,
		Counts:     domain.CandidateCounts{Vector: 5, Lexical: 3, Fused: 6},
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM search_events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWebCacheRoundTripAndHitCount(t *testing.T) {
	store := newTestStore(t)
	cache := store.WebCacheStore()
	ctx := context.Background()
	now := time.Now().UTC()

	entry := domain.WebCacheEntry{
		QueryHash:       "hash-1",
		NormalizedQuery: "specs for xq-9912",
		Results:         []domain.WebResult{{Title: "datasheet", URL: "https://example.com"}},
		CreatedAt:       now,
		ExpiresAt:       now.Add(15 * time.Minute),
	}
	require.NoError(t, cache.Put(ctx, entry))

	got, err := cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.HitCount)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "datasheet", got.Results[0].Title)

	got, err = cache.Get(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.HitCount)

	_, err = cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWebCachePurgeRemovesExpired(t *testing.T) {
	store := newTestStore(t)
	cache := store.WebCacheStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, cache.Put(ctx, domain.WebCacheEntry{
		QueryHash: "stale", NormalizedQuery: "old", Results: nil,
		CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-30 * time.Minute),
	}))
	require.NoError(t, cache.Put(ctx, domain.WebCacheEntry{
		QueryHash: "fresh", NormalizedQuery: "new", Results: nil,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	removed, err := cache.Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = cache.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cache.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	vector := []float32{0.1, -0.5, 3.25, 0}
	assert.Equal(t, vector, bytesToFloat32Slice(float32SliceToBytes(vector)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
