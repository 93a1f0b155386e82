package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

func poolConfig() domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()
	cfg.FailureThreshold = 3
	cfg.RecoveryThreshold = 1
	cfg.ProbeInterval = time.Hour // probe manually in tests
	return cfg
}

func TestPoolEmbedRoutesToHealthyWorker(t *testing.T) {
	b := &mockBackend{name: "w1", vector: []float32{0.1, 0.2}, dims: 2}
	pool := NewPool([]driven.EmbeddingBackend{b}, poolConfig())

	vectors, err := pool.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, WorkerHealthy, pool.WorkerHealthOf("w1"))
}

func TestPoolEmbedRetriesNextWorkerOnFailure(t *testing.T) {
	bad := &mockBackend{name: "bad", embedErr: errors.New("connection refused")}
	good := &mockBackend{name: "good", vector: []float32{1}, dims: 1}
	pool := NewPool([]driven.EmbeddingBackend{bad, good}, poolConfig())

	// Run enough calls that both workers get picked first at least once.
	for i := 0; i < 4; i++ {
		vectors, err := pool.Embed(context.Background(), []string{"x"})
		require.NoError(t, err)
		require.Len(t, vectors, 1)
	}

	assert.Equal(t, WorkerDegraded, pool.WorkerHealthOf("bad"))
	assert.Positive(t, good.calls())
}

func TestPoolMarksWorkerUnhealthyAfterConsecutiveFailures(t *testing.T) {
	bad := &mockBackend{name: "bad", embedErr: errors.New("boom")}
	pool := NewPool([]driven.EmbeddingBackend{bad}, poolConfig())

	for i := 0; i < 3; i++ {
		_, err := pool.Embed(context.Background(), []string{"x"})
		require.Error(t, err)
	}

	assert.Equal(t, WorkerUnhealthy, pool.WorkerHealthOf("bad"))
	// Unhealthy workers receive zero routing weight.
	assert.Zero(t, pool.WorkerWeight("bad"))
}

func TestPoolFailsFastWhenAllWorkersUnhealthy(t *testing.T) {
	b1 := &mockBackend{name: "w1", embedErr: errors.New("down")}
	b2 := &mockBackend{name: "w2", embedErr: errors.New("down")}
	pool := NewPool([]driven.EmbeddingBackend{b1, b2}, poolConfig())

	// Drive both workers to unhealthy.
	for i := 0; i < 4; i++ {
		_, _ = pool.Embed(context.Background(), []string{"x"})
	}
	require.Equal(t, WorkerUnhealthy, pool.WorkerHealthOf("w1"))
	require.Equal(t, WorkerUnhealthy, pool.WorkerHealthOf("w2"))

	before := b1.calls() + b2.calls()
	_, err := pool.Embed(context.Background(), []string{"x"})

	var noBackend *domain.NoBackendAvailableError
	require.ErrorAs(t, err, &noBackend)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	// Fail fast: no backend was called.
	assert.Equal(t, before, b1.calls()+b2.calls())
}

func TestPoolProbeRecoversUnhealthyWorker(t *testing.T) {
	b := &mockBackend{name: "w1", embedErr: errors.New("down"), probeErr: errors.New("down")}
	pool := NewPool([]driven.EmbeddingBackend{b}, poolConfig())

	for i := 0; i < 3; i++ {
		_, _ = pool.Embed(context.Background(), []string{"x"})
	}
	require.Equal(t, WorkerUnhealthy, pool.WorkerHealthOf("w1"))

	// Failed probe keeps the worker out of rotation.
	pool.ProbeAll(context.Background())
	assert.Equal(t, WorkerUnhealthy, pool.WorkerHealthOf("w1"))
	assert.Zero(t, pool.WorkerWeight("w1"))

	// One successful probe restores it.
	b.probeErr = nil
	b.embedErr = nil
	b.vector = []float32{1}
	pool.ProbeAll(context.Background())

	assert.Equal(t, WorkerHealthy, pool.WorkerHealthOf("w1"))
	assert.Positive(t, pool.WorkerWeight("w1"))

	vectors, err := pool.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
}

func TestPoolSpreadsLoadAcrossWorkers(t *testing.T) {
	b1 := &mockBackend{name: "w1", vector: []float32{1}, dims: 1}
	b2 := &mockBackend{name: "w2", vector: []float32{1}, dims: 1}
	pool := NewPool([]driven.EmbeddingBackend{b1, b2}, poolConfig())

	for i := 0; i < 10; i++ {
		_, err := pool.Embed(context.Background(), []string{"x"})
		require.NoError(t, err)
	}

	// Equal weights: round robin touches both workers.
	assert.Positive(t, b1.calls())
	assert.Positive(t, b2.calls())
	assert.Equal(t, 10, b1.calls()+b2.calls())
}

func TestPoolCancelledContextIsNotWorkerFault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &mockBackend{name: "w1", embedErr: context.Canceled}
	pool := NewPool([]driven.EmbeddingBackend{b}, poolConfig())

	_, err := pool.Embed(ctx, []string{"x"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, WorkerHealthy, pool.WorkerHealthOf("w1"))
}

func TestPoolStartStopIdempotent(t *testing.T) {
	b := &mockBackend{name: "w1", vector: []float32{1}, dims: 1}
	pool := NewPool([]driven.EmbeddingBackend{b}, poolConfig())

	pool.Start()
	pool.Start()
	pool.Stop()
	pool.Stop()
	assert.NoError(t, pool.Close())
}
