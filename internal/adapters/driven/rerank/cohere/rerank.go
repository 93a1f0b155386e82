// Package cohere provides a rerank backend adapter for Cohere-compatible
// /rerank APIs, including self-hosted cross-encoder servers that expose
// the same shape.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.RerankBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.cohere.com/v2"
	DefaultModel   = "rerank-v3.5"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the rerank backend.
type Config struct {
	// BaseURL is the API base URL (default: https://api.cohere.com/v2).
	BaseURL string

	// APIKey is the bearer token. Optional for self-hosted servers.
	APIKey string

	// Model is the rerank model to use (default: rerank-v3.5).
	Model string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Backend scores (query, passage) pairs through a rerank API.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// rerankResponse is the /rerank response format.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewBackend creates a new rerank backend.
func NewBackend(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// Score returns one relevance score per passage, in passage order.
func (b *Backend) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{
		Model:     b.model,
		Query:     query,
		Documents: passages,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", domain.ErrBackendUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rerank error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(rerankResp.Results) != len(passages) {
		return nil, fmt.Errorf("rerank returned %d scores for %d passages",
			len(rerankResp.Results), len(passages))
	}

	// Results arrive sorted by relevance; restore passage order.
	scores := make([]float64, len(passages))
	for _, result := range rerankResp.Results {
		if result.Index < 0 || result.Index >= len(passages) {
			return nil, fmt.Errorf("rerank returned index %d out of range", result.Index)
		}
		scores[result.Index] = result.RelevanceScore
	}

	return scores, nil
}

// ModelName returns the name of the rerank model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Close releases resources.
func (b *Backend) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
