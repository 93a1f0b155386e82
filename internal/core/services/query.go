package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Store retry policy: store errors are always retried, never dropped.
const (
	storeRetries      = 2
	storeRetryBackoff = 150 * time.Millisecond
)

// QueryService coordinates one answering pipeline per query:
// retrieve, rerank, route, augment, synthesize, record telemetry.
type QueryService struct {
	retriever   *Retriever
	reranker    *Reranker
	augmenter   *WebAugmenter
	synthesizer *Synthesizer
	telemetry   driven.TelemetrySink
	config      driven.ConfigStore
}

// NewQueryService creates the query orchestrator.
func NewQueryService(
	retriever *Retriever,
	reranker *Reranker,
	augmenter *WebAugmenter,
	synthesizer *Synthesizer,
	telemetry driven.TelemetrySink,
	config driven.ConfigStore,
) *QueryService {
	return &QueryService{
		retriever:   retriever,
		reranker:    reranker,
		augmenter:   augmenter,
		synthesizer: synthesizer,
		telemetry:   telemetry,
		config:      config,
	}
}

// Answer runs the full pipeline for one query as an independent task.
// Validation failures are returned immediately; everything after that
// is reported through the event stream.
func (s *QueryService) Answer(
	ctx context.Context, req driving.QueryRequest,
) (<-chan domain.AnswerEvent, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("answer: empty query: %w", domain.ErrInvalidInput)
	}
	if err := validateFilters(req.Filters); err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}

	out := make(chan domain.AnswerEvent, eventBuffer)
	go s.run(ctx, req, out)
	return out, nil
}

// run executes the pipeline and forwards synthesis events, emitting a
// conversation_id event first when the request starts a new
// conversation.
func (s *QueryService) run(ctx context.Context, req driving.QueryRequest, out chan<- domain.AnswerEvent) {
	defer close(out)

	start := time.Now()
	event := domain.SearchEvent{Query: req.Query}

	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
		if !emit(ctx, out, domain.AnswerEvent{
			Type:           domain.AnswerEventConversationID,
			ConversationID: req.ConversationID,
		}) {
			return
		}
	}

	strategy, decision, err := s.prepare(ctx, req, &event)
	if err != nil {
		logger.Warn("Query pipeline failed: %v", err)
		event.Error = err.Error()
		emit(ctx, out, domain.AnswerEvent{
			Type:    domain.AnswerEventError,
			Message: "The answering engine is temporarily unavailable. Please retry.",
		})
		s.record(event, start)
		return
	}

	event.Strategy = strategy.Kind()
	event.Confidence = decision.Confidence

	for ev := range s.synthesizer.Synthesize(ctx, req.Query, strategy, req.History) {
		if ev.Type == domain.AnswerEventError {
			event.Error = ev.Message
		}
		if !emit(ctx, out, ev) {
			break
		}
	}

	s.record(event, start)
}

// prepare runs retrieval, reranking, routing and web augmentation,
// returning the strategy to synthesize from.
func (s *QueryService) prepare(
	ctx context.Context, req driving.QueryRequest, event *domain.SearchEvent,
) (domain.Strategy, RouteDecision, error) {
	cfg := s.config.Engine()
	k := cfg.MaxCandidatesPerStage / 2

	retrieved, err := s.retrieveWithRetry(ctx, req.Query, k, req.Filters)
	if err != nil {
		return nil, RouteDecision{}, err
	}

	event.Method = retrieved.Method
	event.Counts = retrieved.Counts

	outcome := s.reranker.Rerank(ctx, req.Query, retrieved.Candidates)
	event.Unreranked = outcome.Unreranked || retrieved.Degraded

	top, spread, count := RetrievalSignal(outcome.Candidates)
	decision := Route(top, spread, count, cfg)
	logger.Info("Routing: strategy=%s confidence=%.3f (top=%.3f spread=%.3f count=%d)",
		decision.Strategy, decision.Confidence, top, spread, count)

	evidence := outcome.Candidates
	if len(evidence) > cfg.MaxContextChunks {
		evidence = evidence[:cfg.MaxContextChunks]
	}

	switch decision.Strategy {
	case domain.StrategyDocumentOnly:
		return domain.DocumentOnlyStrategy{Evidence: evidence}, decision, nil

	case domain.StrategyWebOnly:
		results := s.augmenter.Search(ctx, req.Query)
		event.Counts.Web = len(results)
		return domain.WebOnlyStrategy{Results: results}, decision, nil

	default:
		results := s.augmenter.Search(ctx, req.Query)
		event.Counts.Web = len(results)
		return domain.HybridStrategy{Evidence: evidence, Results: results}, decision, nil
	}
}

// retrieveWithRetry retries store outages with backoff. Store errors
// are never silently swallowed: after the retry budget the failure
// propagates.
func (s *QueryService) retrieveWithRetry(
	ctx context.Context, query string, k int, filters domain.RetrievalFilters,
) (*domain.RetrievalResult, error) {
	var lastErr error

	for attempt := 0; attempt <= storeRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying retrieval after store outage (attempt %d)", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(storeRetryBackoff * time.Duration(attempt)):
			}
		}

		result, err := s.retriever.Retrieve(ctx, query, k, filters)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// record emits telemetry as a side effect. Sink failures are logged,
// never propagated.
func (s *QueryService) record(event domain.SearchEvent, start time.Time) {
	event.LatencyMS = time.Since(start).Milliseconds()
	event.CreatedAt = time.Now().UTC()

	// Detached context: telemetry outlives a cancelled request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.telemetry.Record(ctx, event); err != nil {
		logger.Warn("Telemetry write failed: %v", err)
	}
}
