package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

type queryServiceMock struct {
	answerFunc func(ctx context.Context, req driving.QueryRequest) (<-chan domain.AnswerEvent, error)
	lastReq    driving.QueryRequest
}

func (m *queryServiceMock) Answer(ctx context.Context, req driving.QueryRequest) (<-chan domain.AnswerEvent, error) {
	m.lastReq = req
	return m.answerFunc(ctx, req)
}

type ingestServiceMock struct {
	ingestFunc func(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error)
	lastReq    driving.IngestRequest
}

func (m *ingestServiceMock) IngestDocument(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.lastReq = req
	return m.ingestFunc(ctx, req)
}

// eventStream builds a closed channel pre-loaded with the given events.
func eventStream(events ...domain.AnswerEvent) <-chan domain.AnswerEvent {
	ch := make(chan domain.AnswerEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func newTestRouter(query *queryServiceMock, ingest *ingestServiceMock) http.Handler {
	if query == nil {
		query = &queryServiceMock{
			answerFunc: func(context.Context, driving.QueryRequest) (<-chan domain.AnswerEvent, error) {
				return eventStream(), nil
			},
		}
	}
	if ingest == nil {
		ingest = &ingestServiceMock{
			ingestFunc: func(context.Context, driving.IngestRequest) (*driving.IngestResult, error) {
				return &driving.IngestResult{}, nil
			},
		}
	}
	return NewRouter(NewHandler(query, ingest))
}

func TestHealthReportsOK(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestQueryStreamsServerSentEvents(t *testing.T) {
	query := &queryServiceMock{
		answerFunc: func(context.Context, driving.QueryRequest) (<-chan domain.AnswerEvent, error) {
			return eventStream(
				domain.AnswerEvent{Type: domain.AnswerEventConversationID, ConversationID: "conv-1"},
				domain.AnswerEvent{Type: domain.AnswerEventSources, Sources: []domain.Citation{
					{ID: "chunk-1", Title: "Install Guide", Excerpt: "Mount the bracket.", Source: "document"},
				}},
				domain.AnswerEvent{Type: domain.AnswerEventToken, Token: "Mount "},
				domain.AnswerEvent{Type: domain.AnswerEventToken, Token: "the bracket."},
				domain.AnswerEvent{Type: domain.AnswerEventDone},
			), nil
		},
	}
	router := newTestRouter(query, nil)

	body := `{"query":"How do I mount it?","conversation_id":"conv-1","filters":{"doc_type":"manual"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	stream := rec.Body.String()
	assert.Contains(t, stream, "event: conversation_id\ndata: {\"conversation_id\":\"conv-1\"}\n\n")
	assert.Contains(t, stream, "event: sources\n")
	assert.Contains(t, stream, `"title":"Install Guide"`)
	assert.Contains(t, stream, "event: token\ndata: {\"token\":\"Mount \"}\n\n")
	assert.Contains(t, stream, "event: done\ndata: {}\n\n")

	// Token events arrive before the terminal event.
	assert.Less(t, strings.Index(stream, "event: token"), strings.Index(stream, "event: done"))

	assert.Equal(t, "How do I mount it?", query.lastReq.Query)
	assert.Equal(t, "conv-1", query.lastReq.ConversationID)
	assert.Equal(t, "manual", query.lastReq.Filters.DocType)
}

func TestQueryForwardsHistory(t *testing.T) {
	query := &queryServiceMock{
		answerFunc: func(context.Context, driving.QueryRequest) (<-chan domain.AnswerEvent, error) {
			return eventStream(domain.AnswerEvent{Type: domain.AnswerEventDone}), nil
		},
	}
	router := newTestRouter(query, nil)

	body := `{"query":"And the torque?","history":[{"role":"user","content":"How do I mount it?"},{"role":"assistant","content":"Use the bracket."}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, query.lastReq.History, 2)
	assert.Equal(t, "user", query.lastReq.History[0].Role)
	assert.Equal(t, "Use the bracket.", query.lastReq.History[1].Content)
}

func TestQueryRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryMapsInvalidInputToBadRequest(t *testing.T) {
	query := &queryServiceMock{
		answerFunc: func(context.Context, driving.QueryRequest) (<-chan domain.AnswerEvent, error) {
			return nil, domain.ErrInvalidInput
		},
	}
	router := newTestRouter(query, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestReturnsResult(t *testing.T) {
	ingest := &ingestServiceMock{
		ingestFunc: func(context.Context, driving.IngestRequest) (*driving.IngestResult, error) {
			return &driving.IngestResult{DocumentID: "doc-1", ChunksStored: 3}, nil
		},
	}
	router := newTestRouter(nil, ingest)

	body := `{
		"document": {"id":"doc-1","checksum":"abc123","doc_type":"manual","privacy":"private"},
		"chunks": [
			{"id":"chunk-1","document_id":"doc-1","position":0,"content":"Mount the bracket."}
		]
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var result driving.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 3, result.ChunksStored)
	assert.False(t, result.Skipped)

	assert.Equal(t, "abc123", ingest.lastReq.Document.Checksum)
	assert.Equal(t, domain.PrivacyPrivate, ingest.lastReq.Document.Privacy)
	require.Len(t, ingest.lastReq.Chunks, 1)
	assert.Equal(t, "Mount the bracket.", ingest.lastReq.Chunks[0].Content)
}

func TestIngestMapsErrorsToStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"store outage", &domain.StoreUnavailableError{Op: "save document"}, http.StatusServiceUnavailable},
		{"embedding backends offline", domain.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"unexpected failure", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest := &ingestServiceMock{
				ingestFunc: func(context.Context, driving.IngestRequest) (*driving.IngestResult, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(nil, ingest)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"document":{}}`)))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
