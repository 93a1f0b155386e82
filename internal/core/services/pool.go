package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// WorkerHealth is the health state of one embedding worker.
type WorkerHealth int

// Worker health states. Transitions:
// Healthy -> Degraded (1 failure) -> Unhealthy (FailureThreshold
// consecutive failures, removed from rotation) -> Healthy
// (RecoveryThreshold successful probes).
const (
	WorkerHealthy WorkerHealth = iota
	WorkerDegraded
	WorkerUnhealthy
)

// String returns the health state name.
func (h WorkerHealth) String() string {
	switch h {
	case WorkerHealthy:
		return "healthy"
	case WorkerDegraded:
		return "degraded"
	case WorkerUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// worker wraps one backend with health and latency tracking.
// Each worker guards its own counters, so one query's outcome updates
// only that worker's state.
type worker struct {
	backend driven.EmbeddingBackend

	mu           sync.Mutex
	health       WorkerHealth
	failures     int     // consecutive failures
	probeOKs     int     // consecutive successful probes while unhealthy
	ewmaLatency  float64 // milliseconds
	queueDepth   int     // in-flight requests
	wrrCredit    float64 // smooth weighted round robin credit
}

// weight returns the worker's current routing weight. Unhealthy workers
// weigh zero and receive no traffic. The weight decays with recent
// latency and queue depth.
func (w *worker) weight() float64 {
	switch w.health {
	case WorkerUnhealthy:
		return 0
	case WorkerDegraded:
		return 0.5 / ((1 + w.ewmaLatency/100) * float64(1+w.queueDepth))
	default:
		return 1.0 / ((1 + w.ewmaLatency/100) * float64(1+w.queueDepth))
	}
}

// recordSuccess updates health and latency after a successful call.
func (w *worker) recordSuccess(latency time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failures = 0
	if w.health == WorkerDegraded {
		w.health = WorkerHealthy
	}

	// EWMA with alpha 0.3: responsive to slowdowns without thrashing.
	ms := float64(latency.Milliseconds())
	if w.ewmaLatency == 0 {
		w.ewmaLatency = ms
	} else {
		w.ewmaLatency = 0.7*w.ewmaLatency + 0.3*ms
	}
}

// recordFailure updates health after a failed call.
func (w *worker) recordFailure(failureThreshold int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failures++
	switch {
	case w.failures >= failureThreshold:
		if w.health != WorkerUnhealthy {
			logger.Warn("Worker %s marked unhealthy after %d consecutive failures",
				w.backend.Name(), w.failures)
		}
		w.health = WorkerUnhealthy
		w.probeOKs = 0
	default:
		w.health = WorkerDegraded
	}
}

// Pool load-balances embedding requests across interchangeable backends
// with per-worker health tracking. It is an injectable registry, not a
// module-level singleton, so tests build isolated pools.
type Pool struct {
	mu      sync.Mutex
	workers []*worker

	failureThreshold  int
	recoveryThreshold int
	probeInterval     time.Duration

	stopCh  chan struct{}
	running bool
	wg      sync.WaitGroup
}

// NewPool creates a pool over the given backends.
func NewPool(backends []driven.EmbeddingBackend, cfg domain.EngineConfig) *Pool {
	workers := make([]*worker, len(backends))
	for i, b := range backends {
		workers[i] = &worker{backend: b}
	}
	return &Pool{
		workers:           workers,
		failureThreshold:  cfg.FailureThreshold,
		recoveryThreshold: cfg.RecoveryThreshold,
		probeInterval:     cfg.ProbeInterval,
	}
}

// Embed generates vectors for a batch of texts, routing to the worker
// with the best combination of recent latency and queue depth. When a
// worker fails mid-call, one retry goes to the next-best worker. If all
// workers are unhealthy, Embed fails fast with
// *domain.NoBackendAvailableError so callers can degrade to
// lexical-only retrieval.
func (p *Pool) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	const attempts = 2

	var lastErr error
	tried := make(map[*worker]bool, attempts)

	for i := 0; i < attempts; i++ {
		w := p.pick(tried)
		if w == nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, &domain.NoBackendAvailableError{Workers: len(p.workers)}
		}
		tried[w] = true

		w.mu.Lock()
		w.queueDepth++
		w.mu.Unlock()

		start := time.Now()
		vectors, err := w.backend.Embed(ctx, texts)
		elapsed := time.Since(start)

		w.mu.Lock()
		w.queueDepth--
		w.mu.Unlock()

		if err != nil {
			// Caller cancellation is not a worker fault.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Embedding worker %s failed: %v", w.backend.Name(), err)
			w.recordFailure(p.failureThreshold)
			lastErr = &domain.NoBackendAvailableError{Workers: len(p.workers)}
			continue
		}

		w.recordSuccess(elapsed)
		logger.Debug("Embedded %d texts via %s in %s", len(texts), w.backend.Name(), elapsed)
		return vectors, nil
	}

	return nil, lastErr
}

// pick selects the next worker by smooth weighted round robin over the
// current weights, skipping already-tried workers.
func (p *Pool) pick(tried map[*worker]bool) *worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	var chosen *worker
	var total float64

	for _, w := range p.workers {
		if tried[w] {
			continue
		}
		w.mu.Lock()
		weight := w.weight()
		w.wrrCredit += weight
		credit := w.wrrCredit
		w.mu.Unlock()

		if weight == 0 {
			continue
		}
		total += weight
		if chosen == nil || credit > creditOf(chosen) {
			chosen = w
		}
	}

	if chosen != nil {
		chosen.mu.Lock()
		chosen.wrrCredit -= total
		chosen.mu.Unlock()
	}
	return chosen
}

func creditOf(w *worker) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wrrCredit
}

// WorkerWeight returns the current routing weight for a named worker.
// Exposed for health inspection and tests.
func (p *Pool) WorkerWeight(name string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w.backend.Name() == name {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.weight()
		}
	}
	return 0
}

// WorkerHealthOf returns the health state for a named worker.
func (p *Pool) WorkerHealthOf(name string) WorkerHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w.backend.Name() == name {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.health
		}
	}
	return WorkerUnhealthy
}

// Start begins the background probe loop. Probing runs on a fixed
// interval independent of query traffic, so a quiet period still
// recovers unhealthy workers.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.probeLoop()
}

// Stop shuts down the probe loop and waits for it to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
}

// probeLoop probes every worker on each tick.
func (p *Pool) probeLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.ProbeAll(context.Background())
		}
	}
}

// ProbeAll probes every worker once and applies recovery transitions.
// Exposed so tests and startup can force a probe pass.
func (p *Pool) ProbeAll(ctx context.Context) {
	p.mu.Lock()
	workers := make([]*worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := w.backend.Probe(probeCtx)
		cancel()

		w.mu.Lock()
		if err != nil {
			w.probeOKs = 0
			if w.health != WorkerUnhealthy {
				w.failures++
				if w.failures >= p.failureThreshold {
					w.health = WorkerUnhealthy
				}
			}
			w.mu.Unlock()
			logger.Debug("Probe failed for worker %s: %v", w.backend.Name(), err)
			continue
		}

		if w.health == WorkerUnhealthy {
			w.probeOKs++
			if w.probeOKs >= p.recoveryThreshold {
				w.health = WorkerHealthy
				w.failures = 0
				w.probeOKs = 0
				logger.Info("Worker %s recovered after successful probe", w.backend.Name())
			}
		}
		w.mu.Unlock()
	}
}

// Close stops probing and closes all backends.
func (p *Pool) Close() error {
	p.Stop()

	var firstErr error
	for _, w := range p.workers {
		if err := w.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
