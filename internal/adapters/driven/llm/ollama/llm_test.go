package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

func streamServer(t *testing.T, lines []chatChunk) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream, "generation always streams")

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, line := range lines {
			require.NoError(t, enc.Encode(line))
		}
	}))
}

func TestGenerateStreamDeliversTokensInOrder(t *testing.T) {
	server := streamServer(t, []chatChunk{
		{Message: chatMessage{Role: "assistant", Content: "The "}},
		{Message: chatMessage{Role: "assistant", Content: "answer"}},
		{Done: true},
	})
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL, Model: "test-model"})

	var tokens []string
	err := gen.GenerateStream(context.Background(),
		[]domain.ChatMessage{{Role: "user", Content: "question"}},
		func(tok string) error {
			tokens = append(tokens, tok)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"The ", "answer"}, tokens)
}

func TestGenerateStreamStopsOnCallbackError(t *testing.T) {
	server := streamServer(t, []chatChunk{
		{Message: chatMessage{Content: "one"}},
		{Message: chatMessage{Content: "two"}},
		{Done: true},
	})
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL})
	stop := errors.New("stop")

	var calls int
	err := gen.GenerateStream(context.Background(), nil, func(string) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestGenerateStreamPropagatesStreamError(t *testing.T) {
	server := streamServer(t, []chatChunk{
		{Message: chatMessage{Content: "partial"}},
		{Error: "model crashed"},
	})
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL})

	err := gen.GenerateStream(context.Background(), nil, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestGenerateStreamUnreachableServerIsBackendUnavailable(t *testing.T) {
	gen := NewGenerator(Config{BaseURL: "http://127.0.0.1:1"})

	err := gen.GenerateStream(context.Background(), nil, func(string) error { return nil })
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestGenerateStreamSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL})

	err := gen.GenerateStream(context.Background(), nil, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("status %d", http.StatusNotFound))
}
