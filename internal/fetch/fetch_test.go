package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(DefaultConfig())
}

func fetchKind(t *testing.T, err error) Kind {
	t.Helper()
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("unclassified error: %v", err)
	}
	return fe.Kind
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	data, err := testFetcher().Fetch(context.Background(), srv.URL+"/vid.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestFetchForbidden(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusUnavailableForLegalReasons} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := testFetcher().Fetch(context.Background(), srv.URL)
		if kind := fetchKind(t, err); kind != KindForbidden {
			t.Errorf("status %d classified as %s", status, kind)
		}
		srv.Close()
	}
}

func TestFetchNotFoundUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	if kind := fetchKind(t, err); kind != KindUnavailable {
		t.Errorf("404 classified as %s", kind)
	}
}

func TestFetchEmptyBodyMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	if kind := fetchKind(t, err); kind != KindMalformed {
		t.Errorf("empty body classified as %s", kind)
	}
}

func TestFetchBadURLMalformed(t *testing.T) {
	for _, ref := range []string{"not a url", "relative/path", ""} {
		_, err := testFetcher().Fetch(context.Background(), ref)
		if kind := fetchKind(t, err); kind != KindMalformed {
			t.Errorf("%q classified as %s", ref, kind)
		}
	}
}

func TestFetchConnectionRefusedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testFetcher().Fetch(context.Background(), url)
	if kind := fetchKind(t, err); kind != KindUnavailable {
		t.Errorf("dead endpoint classified as %s", kind)
	}
}

func TestFetchBodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{Timeout: DefaultConfig().Timeout, MaxBodyBytes: 16})
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 16 {
		t.Errorf("body not capped: %d bytes", len(data))
	}
}
