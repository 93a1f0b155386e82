// Package searxng provides a web search provider adapter for SearxNG,
// a privacy-preserving metasearch engine with a JSON API.
package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.WebSearchProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 1.0
	DefaultBurstSize         = 3
	DefaultMaxResults        = 8
)

// Config holds configuration for the SearxNG provider.
type Config struct {
	// BaseURL is the SearxNG instance URL. Required.
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls (default: 1).
	RequestsPerSecond float64

	// BurstSize is the token bucket burst (default: 3).
	BurstSize int

	// MaxResults caps how many hits are returned per query (default: 8).
	MaxResults int
}

// Provider queries a SearxNG instance over its JSON API, throttled by a
// token bucket so a burst of cache misses does not hammer the instance.
type Provider struct {
	client     *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxResults int
}

// searchResponse is the SearxNG JSON API response format.
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewProvider creates a new SearxNG provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	return &Provider{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		maxResults: cfg.MaxResults,
	}
}

// Search returns ranked web results for the query.
func (p *Provider) Search(ctx context.Context, query string) ([]domain.WebResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		p.baseURL+"/search?"+params.Encode(),
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %v: %w", err, domain.ErrWebSearchFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng status %d: %w", resp.StatusCode, domain.ErrWebSearchFailed)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %v: %w", err, domain.ErrWebSearchFailed)
	}

	results := make([]domain.WebResult, 0, len(searchResp.Results))
	for _, hit := range searchResp.Results {
		if len(results) >= p.maxResults {
			break
		}
		results = append(results, domain.WebResult{
			Title:   hit.Title,
			URL:     hit.URL,
			Snippet: hit.Content,
		})
	}

	return results, nil
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
