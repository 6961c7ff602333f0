package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// #region errors

// Kind classifies an analyzer failure.
type Kind string

const (
	KindUnavailable       Kind = "UNAVAILABLE"
	KindQuotaExceeded     Kind = "QUOTA_EXCEEDED"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
)

// Error is a classified analyzer failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analyzer: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// transient reports whether the failure is worth retrying at the call
// boundary. Quota and format rejections are permanent.
func (e *Error) transient() bool {
	return e.Kind == KindUnavailable
}

// #endregion errors

// #region options

// Options selects which analysis features to request.
type Options struct {
	Transcription bool
	OCR           bool
}

// #endregion options

// #region config

// Config holds analyzer client parameters.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultConfig returns the default analyzer client configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Timeout:     10 * time.Minute,
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
	}
}

// #endregion config

// #region client

// Client calls the external multi-modal video analyzer over HTTP/JSON.
type Client struct {
	config Config
	httpc  *http.Client
}

// NewClient creates an analyzer client.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpc:  &http.Client{Timeout: config.Timeout},
	}
}

// #endregion client

// #region wire-types

type analyzeRequest struct {
	Locator  string          `json:"locator"`
	Features map[string]bool `json:"features"`
}

type wireSegment struct {
	Speaker    string  `json:"speaker,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

type analyzeResponse struct {
	Transcript           []wireSegment `json:"transcript"`
	OnscreenTextPrimary  []wireSegment `json:"onscreen_text_primary"`
	OnscreenTextFallback []wireSegment `json:"onscreen_text_fallback"`
	Duration             float64       `json:"duration"`
	PlatformHint         string        `json:"platform_hint"`
}

// #endregion wire-types

// #region analyze

// Analyze requests transcription and/or OCR for the stored video and
// normalizes the raw payload at the boundary (see normalize.go), so callers
// never see untyped analyzer output.
func (c *Client) Analyze(ctx context.Context, locator string, opts Options) (Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		Locator: locator,
		Features: map[string]bool{
			"transcription": opts.Transcription,
			"ocr":           opts.OCR,
		},
	})
	if err != nil {
		return Analysis{}, &Error{Kind: KindUnsupportedFormat, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Analysis{}, &Error{Kind: KindUnavailable, Err: ctx.Err()}
			case <-time.After(c.config.Backoff * time.Duration(attempt)):
			}
		}

		resp, err := c.post(ctx, bytes.NewReader(body))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var ae *Error
		if !errors.As(err, &ae) || !ae.transient() {
			return Analysis{}, err
		}
	}
	return Analysis{}, lastErr
}

func (c *Client) post(ctx context.Context, body io.Reader) (Analysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/analyze", body)
	if err != nil {
		return Analysis{}, &Error{Kind: KindUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Analysis{}, &Error{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return Analysis{}, &Error{Kind: KindQuotaExceeded, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return Analysis{}, &Error{Kind: KindUnsupportedFormat, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return Analysis{}, &Error{Kind: KindUnavailable, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var wire analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Analysis{}, &Error{Kind: KindUnsupportedFormat, Err: fmt.Errorf("decode response: %w", err)}
	}
	return normalize(wire)
}

// #endregion analyze
