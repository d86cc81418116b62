package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
)

// ClientConfig holds configuration for the music catalog client.
type ClientConfig struct {
	BaseURL string        // Provider base URL (e.g., http://localhost:8000)
	Timeout time.Duration // Per-request timeout
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Client implements repository.MusicCatalog against a JSON HTTP provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ repository.MusicCatalog = (*Client)(nil)

// NewClient creates a new music catalog client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// searchResponse is the provider's search envelope.
type searchResponse struct {
	Results []model.TrackItem `json:"results"`
}

// Search queries the provider's search endpoint. The items come back
// loosely shaped; TrackItem keeps the fields the gateway does not model
// so enrichment re-emits them untouched.
func (c *Client) Search(ctx context.Context, query, filter string, limit int) ([]model.TrackItem, error) {
	params := url.Values{}
	params.Set("q", query)
	if filter != "" {
		params.Set("filter", filter)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return decoded.Results, nil
}
