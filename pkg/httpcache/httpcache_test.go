package httpcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestFetchURLCachesOK(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	ctx := context.Background()
	for range 3 {
		body, err := FetchURLWithValidator(ctx, cache, srv.Client(), newRequest(t, srv.URL+"/a"), nil, nil)
		if err != nil {
			t.Fatalf("FetchURLWithValidator: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("body = %q", body)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestFetchURLDoesNotCacheErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	for range 2 {
		_, err := FetchURLWithValidator(context.Background(), cache, srv.Client(), newRequest(t, srv.URL+"/b"), nil, nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("err = %v, want HTTP 503", err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestFetchURLValidator(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	reject := func([]byte) bool { return false }
	for range 2 {
		body, err := FetchURLWithValidator(context.Background(), cache, srv.Client(), newRequest(t, srv.URL+"/c"), nil, reject)
		if err != nil || string(body) != "not json" {
			t.Fatalf("FetchURLWithValidator = %q, %v", body, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2 (rejected body must not be cached)", got)
	}
}

func TestFetchURLWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "plain")
	}))
	defer srv.Close()

	before := CacheStats()
	body, err := FetchURLWithValidator(context.Background(), nil, srv.Client(), newRequest(t, srv.URL), nil, nil)
	if err != nil || string(body) != "plain" {
		t.Errorf("FetchURLWithValidator = %q, %v", body, err)
	}
	if got := CacheStats().Misses - before.Misses; got != 1 {
		t.Errorf("uncached fetch recorded %d misses, want 1", got)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{&HTTPError{StatusCode: http.StatusBadGateway}, true},
		{&HTTPError{StatusCode: http.StatusNotFound}, false},
		{&HTTPError{StatusCode: http.StatusBadRequest}, false},
		{fmt.Errorf("wrapped: %w", &HTTPError{StatusCode: http.StatusGatewayTimeout}), true},
		{errors.New("connection reset"), true},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStatsHitRate(t *testing.T) {
	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("empty HitRate = %v", got)
	}
	if got := (Stats{Hits: 3, Misses: 1}).HitRate(); got != 75 {
		t.Errorf("HitRate = %v, want 75", got)
	}
}

func TestURLToKey(t *testing.T) {
	a, b := URLToKey("https://api.openalex.org/authors?search=a"), URLToKey("https://api.openalex.org/authors?search=b")
	if a == b || len(a) != 64 {
		t.Errorf("URLToKey keys = %q, %q", a, b)
	}
}
