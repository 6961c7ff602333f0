package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	cfg := DefaultConfig(baseURL, "llama3")
	cfg.Backoff = time.Millisecond
	return NewClient(cfg)
}

func llmKind(t *testing.T, err error) Kind {
	t.Helper()
	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("unclassified error: %v", err)
	}
	return le.Kind
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: `{"verdict":"COMPLIANT"}`})
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Generate(context.Background(), "audit this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"verdict":"COMPLIANT"}` {
		t.Errorf("output = %q", out)
	}
}

func TestGenerateRateLimitRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if calls != 2 || out != "ok" {
		t.Errorf("calls = %d out = %q", calls, out)
	}
}

func TestGenerateContentFilteredNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	if kind := llmKind(t, err); kind != KindContentFiltered {
		t.Errorf("451 classified as %s", kind)
	}
	if calls != 1 {
		t.Errorf("filtered failure retried: %d calls", calls)
	}
}

func TestGenerateFilteredFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "redacted", Filtered: true})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	if kind := llmKind(t, err); kind != KindContentFiltered {
		t.Errorf("filtered flag classified as %s", kind)
	}
}

func TestGenerateEmptyResponseUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "  "})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	if kind := llmKind(t, err); kind != KindUnavailable {
		t.Errorf("empty response classified as %s", kind)
	}
}

func TestGenerateRetriesExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "p")
	if kind := llmKind(t, err); kind != KindUnavailable {
		t.Errorf("exhausted retries classified as %s", kind)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxAttempts", calls)
	}
}
