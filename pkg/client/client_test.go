package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/opendata-nc/prixnc-client/internal/testutil"
	"github.com/opendata-nc/prixnc-client/pkg/pool"
	"github.com/opendata-nc/prixnc-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

func newTestFetcher(t *testing.T, cfg Config, opts ...Option) *Fetcher {
	t.Helper()

	p, err := pool.New(3)
	if err != nil {
		t.Fatalf("pool.New returned error: %v", err)
	}
	t.Cleanup(p.CloseAll)

	opts = append(opts, WithLogger(zerolog.Nop()))
	f, err := New(p, cfg, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return f
}

func TestNew_InvalidTimeout(t *testing.T) {
	p, err := pool.New(1)
	if err != nil {
		t.Fatalf("pool.New returned error: %v", err)
	}
	defer p.CloseAll()

	for _, timeout := range []time.Duration{0, -time.Second} {
		cfg := DefaultConfig()
		cfg.Timeout = timeout

		if _, err := New(p, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New with timeout %v: expected ErrInvalidConfig, got %v", timeout, err)
		}
	}
}

func TestNew_InvalidAttempts(t *testing.T) {
	p, err := pool.New(1)
	if err != nil {
		t.Fatalf("pool.New returned error: %v", err)
	}
	defer p.CloseAll()

	cfg := DefaultConfig()
	cfg.MaxAttempts = 0

	if _, err := New(p, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestNew_ValidConfig(t *testing.T) {
	p, err := pool.New(1)
	if err != nil {
		t.Fatalf("pool.New returned error: %v", err)
	}
	defer p.CloseAll()

	f, err := New(p, DefaultConfig())
	if err != nil {
		t.Fatalf("New returned error for valid config: %v", err)
	}
	if f == nil {
		t.Fatal("New returned nil fetcher")
	}
}

func TestNew_BackoffDefaults(t *testing.T) {
	p, err := pool.New(1)
	if err != nil {
		t.Fatalf("pool.New returned error: %v", err)
	}
	defer p.CloseAll()

	f, err := New(p, Config{Timeout: time.Second, MaxAttempts: 2})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	defaults := DefaultConfig()
	if f.cfg.MinBackoff != defaults.MinBackoff {
		t.Errorf("MinBackoff = %v, want default %v", f.cfg.MinBackoff, defaults.MinBackoff)
	}
	if f.cfg.MaxBackoff != defaults.MaxBackoff {
		t.Errorf("MaxBackoff = %v, want default %v", f.cfg.MaxBackoff, defaults.MaxBackoff)
	}
	if f.cfg.BackoffMultiplier != defaults.BackoffMultiplier {
		t.Errorf("BackoffMultiplier = %v, want default %v", f.cfg.BackoffMultiplier, defaults.BackoffMultiplier)
	}
}

func TestGetJSON_Success(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	mock.SetResponse("/api/v1/produits/", testutil.MockResponse{
		StatusCode: 200,
		Body:       testutil.PageBody([]map[string]any{{"id": 1}}, ""),
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)
	if err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}

	if _, ok := out["_embedded"]; !ok {
		t.Error("Expected _embedded key in decoded response")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 request, got %d", mock.GetRequestCount())
	}
}

func TestGetJSON_QueryParams(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()

	var gotQuery url.Values
	mock.SetHandler("/api/v1/produits/", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testutil.PageBody([]map[string]any{{"id": 1}}, "")))
	})

	f := newTestFetcher(t, fastRetryConfig())

	params := url.Values{"page": {"0"}, "size": {"1000"}}
	var out map[string]any
	if err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", params, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}

	if gotQuery.Get("page") != "0" || gotQuery.Get("size") != "1000" {
		t.Errorf("Query params not forwarded, got %v", gotQuery)
	}
}

func TestGetJSON_NotFoundNotRetried(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/api/v1/produits/", testutil.NewNotFoundResponse())

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)

	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Class != ErrorClassClient {
		t.Errorf("Class = %s, want client", apiErr.Class)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("404 must not be retried: got %d requests, want 1", mock.GetRequestCount())
	}
}

func TestGetJSON_RateLimitRetried(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/api/v1/produits/", testutil.NewRateLimitResponse(0))

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	// MaxAttempts is 3: initial attempt plus max_attempts-1 retries.
	if mock.GetRequestCount() != 3 {
		t.Errorf("429 should be retried: got %d requests, want 3", mock.GetRequestCount())
	}
}

func TestGetJSON_ServerErrorRetriedThenSucceeds(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.FailFirst("/api/v1/produits/", 2, 500, []map[string]any{{"id": 7}})

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	if err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 requests (2 failures + success), got %d", mock.GetRequestCount())
	}
}

func TestGetJSON_MalformedBodyFatal(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/api/v1/produits/", testutil.MockResponse{
		StatusCode: 200,
		Body:       `{"truncated": `,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)

	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Decode failures must not be retried")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Decode failure must not be retried: got %d requests, want 1", mock.GetRequestCount())
	}
}

func TestGetJSON_NetworkErrorExhausted(t *testing.T) {
	mock := testutil.NewMockCatalog()
	mock.Close() // Closed server: every attempt is a connection error.

	f := newTestFetcher(t, fastRetryConfig())

	var out map[string]any
	err := f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
}

func TestGetJSON_CooldownObserves429(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/api/v1/produits/", testutil.NewRateLimitResponse(1))

	cfg := fastRetryConfig()
	cfg.MaxAttempts = 1

	tracker := ratelimit.NewTracker(zerolog.Nop())
	f := newTestFetcher(t, cfg, WithCooldown(tracker))

	var out map[string]any
	_ = f.GetJSON(context.Background(), mock.URL()+"/api/v1/produits/", nil, &out)

	state := tracker.Snapshot()
	if state.Consecutive != 1 {
		t.Errorf("Cooldown tracker Consecutive = %d, want 1", state.Consecutive)
	}
	if !state.Active() {
		t.Error("Expected active cooldown after a 429 with Retry-After")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		h := map[string][]string{}
		if tt.value != "" {
			h["Retry-After"] = []string{tt.value}
		}
		if got := parseRetryAfter(h); got != tt.expected {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("https://prix.nc/api/v1/produits/", url.Values{"page": {"0"}, "size": {"1000"}})
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}
	if got != "https://prix.nc/api/v1/produits/?page=0&size=1000" {
		t.Errorf("buildURL = %q", got)
	}

	// Params already in the URL win; next-links arrive fully formed.
	got, err = buildURL("https://prix.nc/api/v1/produits/?page=3&size=500", url.Values{"page": {"0"}})
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}
	if got != "https://prix.nc/api/v1/produits/?page=3&size=500" {
		t.Errorf("buildURL = %q, existing params must win", got)
	}
}
