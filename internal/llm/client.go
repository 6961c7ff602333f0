package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// #region errors

// Kind classifies a model endpoint failure.
type Kind string

const (
	KindUnavailable     Kind = "UNAVAILABLE"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindContentFiltered Kind = "CONTENT_FILTERED"
)

// Error is a classified model endpoint failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) transient() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// #endregion errors

// #region config

// Config holds model client parameters.
type Config struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultConfig returns the default model client configuration.
func DefaultConfig(baseURL, model string) Config {
	return Config{
		BaseURL:     baseURL,
		Model:       model,
		Timeout:     2 * time.Minute,
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
	}
}

// #endregion config

// #region client

// Client calls the language-model inference endpoint.
type Client struct {
	config Config
	httpc  *http.Client
}

// NewClient creates a model client.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpc:  &http.Client{Timeout: config.Timeout},
	}
}

// #endregion client

// #region wire-types

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Filtered bool   `json:"filtered,omitempty"`
}

// #endregion wire-types

// #region generate

// Generate sends the prompt and returns the raw model text. Rate limits and
// outages are retried with backoff here; content filtering is permanent.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &Error{Kind: KindUnavailable, Err: ctx.Err()}
			case <-time.After(c.config.Backoff * time.Duration(attempt)):
			}
		}

		text, err := c.post(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var le *Error
		if !errors.As(err, &le) || !le.transient() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", &Error{Kind: KindRateLimited, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusUnavailableForLegalReasons, http.StatusUnprocessableEntity:
		return "", &Error{Kind: KindContentFiltered, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return "", &Error{Kind: KindUnavailable, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var wire generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", &Error{Kind: KindUnavailable, Err: fmt.Errorf("decode response: %w", err)}
	}
	if wire.Filtered {
		return "", &Error{Kind: KindContentFiltered, Err: fmt.Errorf("response filtered by endpoint")}
	}
	if strings.TrimSpace(wire.Response) == "" {
		return "", &Error{Kind: KindUnavailable, Err: fmt.Errorf("empty model response")}
	}
	return wire.Response, nil
}

// #endregion generate
