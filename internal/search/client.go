package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brandguardian/go-auditor/internal/audit"
)

// #region config

// Config holds knowledge-store client parameters.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultConfig returns the default search client configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

// #endregion config

// #region client

// Client queries the external rule knowledge store.
type Client struct {
	config Config
	httpc  *http.Client
}

// NewClient creates a search client.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpc:  &http.Client{Timeout: config.Timeout},
	}
}

// #endregion client

// #region wire-types

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []struct {
		Text             string  `json:"text"`
		SourceDocumentID string  `json:"source_document_id"`
		RelevanceScore   float64 `json:"relevance_score"`
	} `json:"results"`
}

// #endregion wire-types

// #region search

// Search returns up to topK rule excerpts for the query. An empty result
// set is valid and returned without error. Transient store failures are
// retried with backoff at this boundary.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]audit.RuleExcerpt, error) {
	body, err := json.Marshal(searchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.Backoff * time.Duration(attempt)):
			}
		}

		excerpts, retryable, err := c.post(ctx, body)
		if err == nil {
			return excerpts, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte) ([]audit.RuleExcerpt, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("search: status %d", resp.StatusCode)
	}

	var wire searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, false, fmt.Errorf("search: decode response: %w", err)
	}

	excerpts := make([]audit.RuleExcerpt, 0, len(wire.Results))
	for _, r := range wire.Results {
		excerpts = append(excerpts, audit.RuleExcerpt{
			Text:             r.Text,
			SourceDocumentID: r.SourceDocumentID,
			RelevanceScore:   r.RelevanceScore,
		})
	}
	return excerpts, false, nil
}

// #endregion search
