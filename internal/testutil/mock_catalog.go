// Package testutil provides testing utilities for the prix.nc client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock catalog endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock prix.nc API server for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	pathCounts   map[string]int
}

// NewMockCatalog creates a new mock catalog API server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.pathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: empty terminal page.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(PageBody(nil, "")))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.pathCounts = make(map[string]int)
}

// GetRequestCount returns the total number of requests received.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsFor returns the number of requests received for one path.
func (m *MockCatalog) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetProductPages serves a linked chain of product pages on path. The
// handler reads the "page" query parameter and emits the matching page
// with a next link until the last page, which carries no next relation.
func (m *MockCatalog) SetProductPages(path string, pages [][]map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 0
		if v := r.URL.Query().Get("page"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				page = n
			}
		}

		if page < 0 || page >= len(pages) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "no such page"}`))
			return
		}

		next := ""
		if page+1 < len(pages) {
			next = fmt.Sprintf("http://%s%s?page=%d&size=%s",
				r.Host, path, page+1, r.URL.Query().Get("size"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(PageBody(pages[page], next)))
	})
}

// FailFirst makes the first n requests to path fail with status, then
// delegates to a terminal page containing the given records.
func (m *MockCatalog) FailFirst(path string, n, status int, records []map[string]any) {
	var mu sync.Mutex
	served := 0

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		failing := served <= n
		mu.Unlock()

		if failing {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": "simulated failure"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(PageBody(records, "")))
	})
}

// PageBody builds a catalog page envelope:
//
//	{"_embedded": {"produits": [...]}, "_links": {"next": {"href": "..."}}}
//
// An empty nextURL omits the next relation, marking the terminal page.
func PageBody(records []map[string]any, nextURL string) string {
	if records == nil {
		records = []map[string]any{}
	}

	envelope := map[string]any{
		"_embedded": map[string]any{"produits": records},
	}

	links := map[string]any{
		"self": map[string]any{"href": "http://example.invalid/api/v1/produits/"},
	}
	if nextURL != "" {
		links["next"] = map[string]any{"href": nextURL}
	}
	envelope["_links"] = links

	data, err := json.Marshal(envelope)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal page body: %v", err))
	}
	return string(data)
}

// Product builds a minimal product record for test pages.
func Product(id int, name string, price float64) map[string]any {
	return map[string]any{
		"id":       id,
		"nom":      name,
		"prix":     price,
		"_links":   map[string]any{"self": map[string]any{"href": fmt.Sprintf("http://example.invalid/api/v1/produits/%d", id)}},
		"commerce": "Test Store",
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	if retryAfterSeconds > 0 {
		headers["Retry-After"] = strconv.Itoa(retryAfterSeconds)
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
