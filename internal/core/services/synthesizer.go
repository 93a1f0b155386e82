package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// eventBuffer bounds the answer event channel so a slow consumer
// exerts backpressure on generation instead of growing memory.
const eventBuffer = 16

// maxExcerptLen caps citation excerpts.
const maxExcerptLen = 200

// Synthesizer streams a generated answer with citations bound to the
// evidence actually supplied as generation context.
type Synthesizer struct {
	gen    driven.Generator
	config driven.ConfigStore
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(gen driven.Generator, config driven.ConfigStore) *Synthesizer {
	return &Synthesizer{
		gen:    gen,
		config: config,
	}
}

// Synthesize streams the answer for a routed query. The returned
// channel carries zero or more token events, one sources event, and
// exactly one terminal done/error event, then closes.
//
// Cancelling ctx aborts generation: no further backend work is issued,
// the channel closes without a terminal event, and partial text is
// never persisted as a final answer.
//
// A strategy carrying no evidence at all produces a terminal error
// rather than an ungrounded answer.
func (s *Synthesizer) Synthesize(
	ctx context.Context, query string, strategy domain.Strategy, history []domain.ChatMessage,
) <-chan domain.AnswerEvent {
	events := make(chan domain.AnswerEvent, eventBuffer)

	go func() {
		defer close(events)

		evidence, citations := s.buildContext(strategy)
		if len(citations) == 0 {
			logger.Warn("No evidence assembled for query, emitting terminal error")
			emit(ctx, events, domain.AnswerEvent{
				Type:    domain.AnswerEventError,
				Message: "I could not find any grounded evidence to answer this question.",
			})
			return
		}

		messages := buildMessages(query, evidence, history)

		err := s.gen.GenerateStream(ctx, messages, func(token string) error {
			if !emit(ctx, events, domain.AnswerEvent{Type: domain.AnswerEventToken, Token: token}) {
				return ctx.Err()
			}
			return nil
		})

		if ctx.Err() != nil {
			// Caller disconnected: stop emitting, nothing is persisted.
			logger.Debug("Synthesis aborted by caller")
			return
		}

		if err != nil {
			logger.Warn("Generation failed: %v", err)
			emit(ctx, events, domain.AnswerEvent{
				Type:    domain.AnswerEventError,
				Message: "Answer generation failed. Please retry.",
			})
			return
		}

		// Citations come only from context actually sent to generation,
		// in reranked evidence order. Never inferred post hoc.
		if !emit(ctx, events, domain.AnswerEvent{Type: domain.AnswerEventSources, Sources: citations}) {
			return
		}
		emit(ctx, events, domain.AnswerEvent{Type: domain.AnswerEventDone})
	}()

	return events
}

// emit sends one event unless the caller has gone away.
func emit(ctx context.Context, events chan<- domain.AnswerEvent, ev domain.AnswerEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// contextBlock is one piece of evidence included in the prompt.
type contextBlock struct {
	label   string
	content string
}

// buildContext turns the strategy's evidence into prompt blocks and the
// matching citation list. The two are built together so every citation
// references evidence present in the synthesis context.
func (s *Synthesizer) buildContext(strategy domain.Strategy) ([]contextBlock, []domain.Citation) {
	maxChunks := s.config.Engine().MaxContextChunks

	var blocks []contextBlock
	var citations []domain.Citation

	addChunks := func(evidence []domain.Candidate) {
		for _, c := range evidence {
			if len(blocks) >= maxChunks {
				return
			}
			label := fmt.Sprintf("D%d", len(blocks)+1)
			blocks = append(blocks, contextBlock{label: label, content: c.Chunk.Content})
			citations = append(citations, domain.Citation{
				ID:      c.Chunk.ID,
				Title:   chunkTitle(c.Chunk),
				Excerpt: excerpt(c.Chunk.Content),
				Source:  "document",
				Score:   c.FusedScore,
				Page:    c.Chunk.Page,
			})
		}
	}

	addWeb := func(results []domain.WebResult) {
		for _, r := range results {
			if len(blocks) >= maxChunks {
				return
			}
			label := fmt.Sprintf("W%d", len(blocks)+1)
			blocks = append(blocks, contextBlock{label: label, content: r.Snippet})
			citations = append(citations, domain.Citation{
				ID:      r.URL,
				Title:   r.Title,
				Excerpt: excerpt(r.Snippet),
				Source:  "web",
			})
		}
	}

	switch v := strategy.(type) {
	case domain.DocumentOnlyStrategy:
		addChunks(v.Evidence)
	case domain.WebOnlyStrategy:
		addWeb(v.Results)
	case domain.HybridStrategy:
		addChunks(v.Evidence)
		addWeb(v.Results)
	}

	return blocks, citations
}

// buildMessages assembles the chat context sent to generation.
func buildMessages(query string, evidence []contextBlock, history []domain.ChatMessage) []domain.ChatMessage {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the evidence below. ")
	sb.WriteString("Cite evidence by its label. If the evidence is insufficient, say so.\n\n")
	for _, block := range evidence {
		sb.WriteString("[")
		sb.WriteString(block.label)
		sb.WriteString("] ")
		sb.WriteString(block.content)
		sb.WriteString("\n\n")
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: sb.String()})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: "user", Content: query})
	return messages
}

// chunkTitle builds a citation title from a chunk's section and origin.
func chunkTitle(chunk domain.Chunk) string {
	if chunk.SectionTitle != "" {
		return chunk.SectionTitle
	}
	return chunk.DocumentID
}

// excerpt truncates content for citation display.
func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxExcerptLen {
		return content
	}
	return content[:maxExcerptLen] + "..."
}
