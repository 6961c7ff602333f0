package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// #region types

// Kind classifies a media fetch failure.
type Kind string

const (
	KindUnavailable Kind = "UNAVAILABLE"
	KindForbidden   Kind = "FORBIDDEN"
	KindMalformed   Kind = "MALFORMED"
)

// Error is a classified fetch failure.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// #endregion types

// #region config

// Config holds fetcher parameters.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Minute,
		MaxBodyBytes: 2 << 30, // 2 GiB
	}
}

// #endregion config

// #region fetcher

// HTTPFetcher downloads media over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
	config Config
}

// NewHTTPFetcher creates a fetcher with the given config.
func NewHTTPFetcher(config Config) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Fetch downloads the media at sourceRef and returns its bytes.
// Failures are classified as UNAVAILABLE, FORBIDDEN, or MALFORMED so the
// ingestion stage can report them without crashing the run.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceRef string) ([]byte, error) {
	u, err := url.Parse(sourceRef)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{Kind: KindMalformed, URL: sourceRef, Err: fmt.Errorf("not a valid URL")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, URL: sourceRef, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, URL: sourceRef, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return nil, &Error{Kind: KindForbidden, URL: sourceRef, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return nil, &Error{Kind: KindUnavailable, URL: sourceRef, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, URL: sourceRef, Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindMalformed, URL: sourceRef, Err: fmt.Errorf("empty media body")}
	}
	return data, nil
}

// #endregion fetcher
