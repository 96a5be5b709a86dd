package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/ares/internal/cache"
	"github.com/rickgao/ares/internal/metrics"
	"github.com/rickgao/ares/internal/model"
)

// logCapture collects JSON log records for assertions.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logCapture) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// records returns all records at the given level.
func (l *logCapture) records(t *testing.T, level slog.Level) []map[string]any {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(l.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if rec["level"] == level.String() {
			out = append(out, rec)
		}
	}
	return out
}

func newCapturedLogger() (*slog.Logger, *logCapture) {
	lc := &logCapture{}
	return slog.New(slog.NewJSONHandler(lc, &slog.HandlerOptions{Level: slog.LevelDebug})), lc
}

// recordingEngine counts fetch outcomes.
type recordingEngine struct {
	metrics.NilEngine
	mu       sync.Mutex
	outcomes []metrics.FetchOutcome
	lookups  []metrics.CacheResult
}

func (r *recordingEngine) RecordFetch(o metrics.FetchOutcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingEngine) RecordCacheLookup(res metrics.CacheResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, res)
}

// failingStore is a cache.Store whose every call fails.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (model.Snapshot, bool, error) {
	return nil, false, errors.New("store down")
}
func (failingStore) Set(context.Context, string, model.Snapshot) error {
	return errors.New("store down")
}
func (failingStore) Len(context.Context) (int, error) { return 0, errors.New("store down") }

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("secret-key")

		if c.baseURL != DefaultBaseURL {
			t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
		}
		if c.credential != "secret-key" {
			t.Errorf("credential = %q, want %q", c.credential, "secret-key")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
		if c.metrics == nil {
			t.Error("metrics should not be nil")
		}
		if c.cache != nil {
			t.Error("cache should be nil by default")
		}
		if c.readThrough {
			t.Error("readThrough should be off by default")
		}
	})

	t.Run("with base URL option trims trailing slash", func(t *testing.T) {
		c := NewClient("k", WithBaseURL("https://md.example.com/v1/"))
		if c.baseURL != "https://md.example.com/v1" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://md.example.com/v1")
		}
	})

	t.Run("with timeout option", func(t *testing.T) {
		c := NewClient("k", WithTimeout(5*time.Second))
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
	})

	t.Run("with logger option", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("k", WithLogger(logger))
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		transport := &http.Transport{}
		customClient := &http.Client{Timeout: 10 * time.Second, Transport: transport}
		c := NewClient("k", WithHTTPClient(customClient))
		if c.httpClient.Transport != transport {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("timeout = %v, want 10s", c.httpClient.Timeout)
		}
	})

	t.Run("timeout after custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("k", WithHTTPClient(customClient), WithTimeout(2*time.Second))
		if c.httpClient.Timeout != 2*time.Second {
			t.Errorf("client timeout = %v, want 2s", c.httpClient.Timeout)
		}
		if customClient.Timeout != 10*time.Second {
			t.Errorf("caller's client timeout changed to %v", customClient.Timeout)
		}
	})

	t.Run("with cache and read-through", func(t *testing.T) {
		store := cache.NewMemoryStore(4, time.Minute, 0)
		c := NewClient("k", WithCache(store), WithReadThrough(true))
		if c.Cache() != store {
			t.Error("cache not set correctly")
		}
		if !c.readThrough {
			t.Error("readThrough not set")
		}
	})

	t.Run("any credential accepted", func(t *testing.T) {
		c := NewClient("  not a token format  ")
		if c.credential != "  not a token format  " {
			t.Errorf("credential = %q, want it unchanged", c.credential)
		}
	})
}

// TestFetchError tests the FetchError type.
func TestFetchError(t *testing.T) {
	t.Run("status error message", func(t *testing.T) {
		err := &FetchError{MarketID: "us-retail", StatusCode: 404}
		expected := `fetch market data for "us-retail": status 404 Not Found`
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("transport error message and unwrap", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &FetchError{MarketID: "us-retail", Err: cause}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("Error() = %q, should contain cause", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is should reach the cause")
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{0, true},
			{500, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
		}

		for _, tt := range tests {
			err := &FetchError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestFetchMarketData tests the provider round-trip.
func TestFetchMarketData(t *testing.T) {
	t.Run("successful response returns parsed body", func(t *testing.T) {
		body := `{"market":"us-retail","avg_price":19.99,"segments":["smb","enterprise"],"competitors":{"acme":17.5},"active":true,"notes":null}`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Method = %s, want GET", r.Method)
			}
			if r.URL.Path != "/us-retail" {
				t.Errorf("Path = %q, want %q", r.URL.Path, "/us-retail")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}))
		defer server.Close()

		c := NewClient("key", WithBaseURL(server.URL))
		got, err := c.FetchMarketData(context.Background(), "us-retail")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var want model.Snapshot
		if err := json.Unmarshal([]byte(body), &want); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("snapshot = %v, want %v", got, want)
		}
	})

	t.Run("authorization header is the raw credential", func(t *testing.T) {
		credentials := []string{"test-key", "Bearer already-prefixed", "sk_live_abc=="}
		for _, cred := range credentials {
			var gotAuth atomic.Value
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth.Store(r.Header.Get("Authorization"))
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
				}
				w.Write([]byte(`{}`))
			}))

			c := NewClient(cred, WithBaseURL(server.URL))
			if _, err := c.FetchMarketData(context.Background(), "m"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			server.Close()

			if gotAuth.Load() != cred {
				t.Errorf("Authorization header = %q, want %q", gotAuth.Load(), cred)
			}
		}
	})

	t.Run("market id is path-escaped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.EscapedPath() != "/eu%2Fsaas%20tier" {
				t.Errorf("EscapedPath = %q, want %q", r.URL.EscapedPath(), "/eu%2Fsaas%20tier")
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient("key", WithBaseURL(server.URL))
		if _, err := c.FetchMarketData(context.Background(), "eu/saas tier"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty market id", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
		}))
		defer server.Close()

		logger, logs := newCapturedLogger()
		c := NewClient("key", WithBaseURL(server.URL), WithLogger(logger))
		_, err := c.FetchMarketData(context.Background(), "")
		if !errors.Is(err, ErrEmptyMarketID) {
			t.Errorf("err = %v, want ErrEmptyMarketID", err)
		}
		if requests != 0 {
			t.Errorf("requests = %d, want 0", requests)
		}
		if n := len(logs.records(t, slog.LevelError)); n != 0 {
			t.Errorf("error records = %d, want 0", n)
		}
	})
}

// TestFetchMarketData_Errors tests failure translation and logging.
func TestFetchMarketData_Errors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var requests int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				w.WriteHeader(status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			logger, logs := newCapturedLogger()
			store := cache.NewMemoryStore(4, time.Minute, 0)
			c := NewClient("key", WithBaseURL(server.URL), WithLogger(logger), WithCache(store))

			snap, err := c.FetchMarketData(context.Background(), "us-retail")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if snap != nil {
				t.Errorf("snapshot = %v, want nil", snap)
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %T", err)
			}
			if fetchErr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, status)
			}
			if fetchErr.MarketID != "us-retail" {
				t.Errorf("MarketID = %q, want %q", fetchErr.MarketID, "us-retail")
			}
			if !strings.Contains(string(fetchErr.Body), "nope") {
				t.Errorf("Body = %q, should contain response body", fetchErr.Body)
			}

			records := logs.records(t, slog.LevelError)
			if len(records) != 1 {
				t.Fatalf("error records = %d, want 1", len(records))
			}
			if records[0]["market_id"] != "us-retail" {
				t.Errorf("market_id = %v, want us-retail", records[0]["market_id"])
			}
			if !strings.Contains(records[0]["error"].(string), "status") {
				t.Errorf("error field = %v, should describe the failure", records[0]["error"])
			}

			if requests != 1 {
				t.Errorf("requests = %d, want 1 (no retry)", requests)
			}
			if n, _ := store.Len(context.Background()); n != 0 {
				t.Errorf("cache Len = %d, want 0 (failures not cached)", n)
			}
		})
	}

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		logger, logs := newCapturedLogger()
		c := NewClient("key", WithBaseURL("http://"+addr), WithLogger(logger), WithTimeout(2*time.Second))

		_, err = c.FetchMarketData(context.Background(), "us-retail")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T (%v)", err, err)
		}
		if fetchErr.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0", fetchErr.StatusCode)
		}
		if fetchErr.Err == nil {
			t.Error("transport cause should be kept")
		}

		records := logs.records(t, slog.LevelError)
		if len(records) != 1 {
			t.Fatalf("error records = %d, want 1", len(records))
		}
		if records[0]["market_id"] != "us-retail" {
			t.Errorf("market_id = %v, want us-retail", records[0]["market_id"])
		}
	})

	t.Run("credential is never logged", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		logger, logs := newCapturedLogger()
		c := NewClient("super-secret-credential", WithBaseURL(server.URL), WithLogger(logger))
		c.FetchMarketData(context.Background(), "us-retail")

		if strings.Contains(logs.buf.String(), "super-secret-credential") {
			t.Error("credential leaked into logs")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient("key", WithBaseURL(server.URL))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.FetchMarketData(ctx, "us-retail")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error should wrap context.Canceled, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient("key", WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))
		_, err := c.FetchMarketData(context.Background(), "us-retail")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
	})
}

// TestFetchMarketData_ParseErrors tests bodies that are not JSON objects.
func TestFetchMarketData_ParseErrors(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>maintenance</html>`,
		"truncated":     `{"price": 1`,
		"array":         `[1, 2, 3]`,
		"null":          `null`,
		"empty":         ``,
		"trailing data": `{"a":1} {"b":2}`,
		"bare string":   `"ok"`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			logger, logs := newCapturedLogger()
			store := cache.NewMemoryStore(4, time.Minute, 0)
			c := NewClient("key", WithBaseURL(server.URL), WithLogger(logger), WithCache(store))

			_, err := c.FetchMarketData(context.Background(), "us-retail")
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T (%v)", err, err)
			}
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				t.Error("parse failure should not be a FetchError")
			}
			if parseErr.MarketID != "us-retail" {
				t.Errorf("MarketID = %q, want %q", parseErr.MarketID, "us-retail")
			}
			if string(parseErr.Body) != body {
				t.Errorf("Body = %q, want %q", parseErr.Body, body)
			}
			if n := len(logs.records(t, slog.LevelError)); n != 1 {
				t.Errorf("error records = %d, want 1", n)
			}
			if n, _ := store.Len(context.Background()); n != 0 {
				t.Errorf("cache Len = %d, want 0", n)
			}
		})
	}
}

// TestFetchMarketData_Independent tests that sequential fetches do not share state.
func TestFetchMarketData_Independent(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/")
		json.NewEncoder(w).Encode(map[string]any{"market": id, "price_" + id: len(id)})
	}))
	defer server.Close()

	store := cache.NewMemoryStore(4, time.Minute, 0)
	c := NewClient("key", WithBaseURL(server.URL), WithCache(store))

	first, err := c.FetchMarketData(context.Background(), "us-retail")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.FetchMarketData(context.Background(), "eu-saas")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if len(paths) != 2 || paths[0] != "/us-retail" || paths[1] != "/eu-saas" {
		t.Errorf("paths = %v, want [/us-retail /eu-saas]", paths)
	}
	if first["market"] != "us-retail" || len(first) != 2 {
		t.Errorf("first = %v, want only us-retail fields", first)
	}
	if second["market"] != "eu-saas" || len(second) != 2 {
		t.Errorf("second = %v, want only eu-saas fields", second)
	}
	if _, ok := first["price_eu-saas"]; ok {
		t.Error("first snapshot contaminated by second fetch")
	}
}

// TestFetchMarketData_Concurrent tests concurrent fetches for different markets.
func TestFetchMarketData_Concurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"market": strings.TrimPrefix(r.URL.Path, "/")})
	}))
	defer server.Close()

	c := NewClient("key", WithBaseURL(server.URL), WithCache(cache.NewMemoryStore(64, time.Minute, 0)))

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			snap, err := c.FetchMarketData(context.Background(), id)
			if err != nil {
				t.Errorf("fetch %s: %v", id, err)
				return
			}
			if snap["market"] != id {
				t.Errorf("fetch %s returned market %v", id, snap["market"])
			}
		}(id)
	}
	wg.Wait()
}

// TestFetchMarketData_Cache tests write-behind and read-through caching.
func TestFetchMarketData_Cache(t *testing.T) {
	newServer := func(requests *int32) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(requests, 1)
			json.NewEncoder(w).Encode(map[string]any{"version": n})
		}))
	}

	t.Run("writes successful snapshots without reading them", func(t *testing.T) {
		var requests int32
		server := newServer(&requests)
		defer server.Close()

		ctx := context.Background()
		store := cache.NewMemoryStore(4, time.Minute, 0)
		c := NewClient("key", WithBaseURL(server.URL), WithCache(store))

		c.FetchMarketData(ctx, "us-retail")
		snap, err := c.FetchMarketData(ctx, "us-retail")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if requests != 2 {
			t.Errorf("requests = %d, want 2", requests)
		}
		if snap["version"] != float64(2) {
			t.Errorf("version = %v, want 2", snap["version"])
		}
		cached, ok, _ := store.Get(ctx, "us-retail")
		if !ok {
			t.Fatal("expected snapshot in cache")
		}
		if cached["version"] != float64(2) {
			t.Errorf("cached version = %v, want latest (2)", cached["version"])
		}
	})

	t.Run("read-through answers from cache", func(t *testing.T) {
		var requests int32
		server := newServer(&requests)
		defer server.Close()

		ctx := context.Background()
		rec := &recordingEngine{}
		store := cache.NewMemoryStore(4, time.Minute, 0)
		c := NewClient("key",
			WithBaseURL(server.URL),
			WithCache(store),
			WithReadThrough(true),
			WithMetrics(rec),
		)

		first, _ := c.FetchMarketData(ctx, "us-retail")
		second, err := c.FetchMarketData(ctx, "us-retail")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if requests != 1 {
			t.Errorf("requests = %d, want 1", requests)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("second = %v, want cached %v", second, first)
		}

		wantOutcomes := []metrics.FetchOutcome{metrics.FetchSuccess, metrics.FetchCacheHit}
		if !reflect.DeepEqual(rec.outcomes, wantOutcomes) {
			t.Errorf("outcomes = %v, want %v", rec.outcomes, wantOutcomes)
		}
		wantLookups := []metrics.CacheResult{metrics.CacheMiss, metrics.CacheHit}
		if !reflect.DeepEqual(rec.lookups, wantLookups) {
			t.Errorf("lookups = %v, want %v", rec.lookups, wantLookups)
		}
	})

	t.Run("read-through refetches after expiry", func(t *testing.T) {
		var requests int32
		server := newServer(&requests)
		defer server.Close()

		ctx := context.Background()
		store := cache.NewMemoryStore(4, 30*time.Millisecond, 0)
		c := NewClient("key", WithBaseURL(server.URL), WithCache(store), WithReadThrough(true))

		c.FetchMarketData(ctx, "us-retail")
		time.Sleep(50 * time.Millisecond)
		c.FetchMarketData(ctx, "us-retail")

		if requests != 2 {
			t.Errorf("requests = %d, want 2", requests)
		}
	})

	t.Run("read-through without cache always fetches", func(t *testing.T) {
		var requests int32
		server := newServer(&requests)
		defer server.Close()

		c := NewClient("key", WithBaseURL(server.URL), WithReadThrough(true))
		c.FetchMarketData(context.Background(), "us-retail")
		c.FetchMarketData(context.Background(), "us-retail")

		if requests != 2 {
			t.Errorf("requests = %d, want 2", requests)
		}
	})

	t.Run("cache failures do not fail the fetch", func(t *testing.T) {
		var requests int32
		server := newServer(&requests)
		defer server.Close()

		logger, logs := newCapturedLogger()
		c := NewClient("key",
			WithBaseURL(server.URL),
			WithLogger(logger),
			WithCache(failingStore{}),
			WithReadThrough(true),
		)

		snap, err := c.FetchMarketData(context.Background(), "us-retail")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap["version"] != float64(1) {
			t.Errorf("version = %v, want 1", snap["version"])
		}
		if n := len(logs.records(t, slog.LevelWarn)); n != 2 {
			t.Errorf("warn records = %d, want 2 (read and write)", n)
		}
		if n := len(logs.records(t, slog.LevelError)); n != 0 {
			t.Errorf("error records = %d, want 0", n)
		}
	})
}

// TestFetchMarketData_Metrics tests outcome reporting.
func TestFetchMarketData_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{}`))
		case "/bad":
			w.Write([]byte(`nope`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	rec := &recordingEngine{}
	c := NewClient("key", WithBaseURL(server.URL), WithMetrics(rec))

	c.FetchMarketData(context.Background(), "ok")
	c.FetchMarketData(context.Background(), "bad")
	c.FetchMarketData(context.Background(), "down")

	want := []metrics.FetchOutcome{metrics.FetchSuccess, metrics.FetchParseError, metrics.FetchError}
	if !reflect.DeepEqual(rec.outcomes, want) {
		t.Errorf("outcomes = %v, want %v", rec.outcomes, want)
	}
	if len(rec.lookups) != 0 {
		t.Errorf("lookups = %v, want none without read-through", rec.lookups)
	}
}
