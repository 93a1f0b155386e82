package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Handler serves the answering API.
type Handler struct {
	query  driving.QueryService
	ingest driving.IngestService
}

// NewHandler creates the API handler.
func NewHandler(query driving.QueryService, ingest driving.IngestService) *Handler {
	return &Handler{
		query:  query,
		ingest: ingest,
	}
}

// queryRequest is the POST /api/query body.
type queryRequest struct {
	Query          string                  `json:"query"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	History        []chatMessage           `json:"history,omitempty"`
	Filters        domain.RetrievalFilters `json:"filters,omitempty"`
}

// chatMessage is one history turn in the request body.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
}

// Query answers one question as an SSE stream. The request context is
// cancelled when the caller disconnects, which tears the pipeline down.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	history := make([]domain.ChatMessage, len(req.History))
	for i, msg := range req.History {
		history[i] = domain.ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	events, err := h.query.Answer(r.Context(), driving.QueryRequest{
		Query:          req.Query,
		ConversationID: req.ConversationID,
		History:        history,
		Filters:        req.Filters,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		if err := writeSSE(w, event); err != nil {
			logger.Debug("Client disconnected mid-stream: %v", err)
			return
		}
		flusher.Flush()
	}
}

// ingestRequest is the POST /api/ingest body.
type ingestRequest struct {
	Document domain.Document `json:"document"`
	Chunks   []domain.Chunk  `json:"chunks"`
}

// Ingest stores one document with its chunks.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.ingest.IngestDocument(r.Context(), driving.IngestRequest{
		Document: req.Document,
		Chunks:   req.Chunks,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrStoreUnavailable),
			errors.Is(err, domain.ErrBackendUnavailable):
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result) //nolint:errcheck
}

// sse payload shapes per event type.
type tokenPayload struct {
	Token string `json:"token"`
}

type sourcesPayload struct {
	Sources []domain.Citation `json:"sources"`
}

type conversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// writeSSE writes one answer event as a tagged SSE event.
func writeSSE(w http.ResponseWriter, event domain.AnswerEvent) error {
	var payload any
	switch event.Type {
	case domain.AnswerEventToken:
		payload = tokenPayload{Token: event.Token}
	case domain.AnswerEventSources:
		payload = sourcesPayload{Sources: event.Sources}
	case domain.AnswerEventConversationID:
		payload = conversationPayload{ConversationID: event.ConversationID}
	case domain.AnswerEventError:
		payload = errorPayload{Message: event.Message}
	case domain.AnswerEventDone:
		payload = struct{}{}
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
