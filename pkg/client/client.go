// Package client provides the resilient catalog API fetcher: bounded
// retry with exponential backoff, failure classification, and per-attempt
// connection handle acquisition from a shared pool.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/opendata-nc/prixnc-client/pkg/cache"
	"github.com/opendata-nc/prixnc-client/pkg/logging"
	"github.com/opendata-nc/prixnc-client/pkg/pool"
	"github.com/opendata-nc/prixnc-client/pkg/ratelimit"
)

// Config holds the retry policy for the fetcher. It is immutable once the
// fetcher is constructed.
type Config struct {
	// Timeout bounds each individual attempt. Must be positive.
	Timeout time.Duration

	// MaxAttempts is the maximum number of attempts per fetch,
	// including the initial request. Must be at least 1.
	MaxAttempts int

	// MinBackoff is the minimum delay between attempts.
	MinBackoff time.Duration

	// MaxBackoff is the maximum delay between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier is the base of the exponential backoff schedule.
	BackoffMultiplier float64
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		Timeout:           5 * time.Second,
		MaxAttempts:       3,
		MinBackoff:        2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Option configures optional fetcher collaborators.
type Option func(*Fetcher)

// WithLogger sets the fetcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithCache enables the Redis page cache. Responses are stored for ttl and
// cache hits skip the HTTP attempt loop entirely.
func WithCache(manager *cache.Manager, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = manager
		f.cacheTTL = ttl
	}
}

// WithCooldown wires a 429 cooldown tracker. Active cooldown windows are
// waited out before each attempt.
func WithCooldown(tracker *ratelimit.Tracker) Option {
	return func(f *Fetcher) { f.cooldown = tracker }
}

// Fetcher performs resilient GET requests against the catalog API.
type Fetcher struct {
	pool     *pool.Pool
	cfg      Config
	logger   zerolog.Logger
	cache    *cache.Manager
	cacheTTL time.Duration
	cooldown *ratelimit.Tracker
}

// New creates a fetcher over the given connection pool.
// Returns ErrInvalidConfig when the timeout is not positive or the attempt
// budget is below one. Zero backoff fields take the defaults.
func New(p *pool.Pool, cfg Config, opts ...Option) (*Fetcher, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: connection pool is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive (got %v)", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts must be at least 1 (got %d)", ErrInvalidConfig, cfg.MaxAttempts)
	}

	defaults := DefaultConfig()
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaults.MinBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		return nil, fmt.Errorf("%w: max backoff %v below min backoff %v", ErrInvalidConfig, cfg.MaxBackoff, cfg.MinBackoff)
	}

	f := &Fetcher{
		pool:   p,
		cfg:    cfg,
		logger: logging.NewLogger("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// GetJSON performs a GET request against rawURL with optional query
// parameters and decodes the JSON response into out.
//
// Transient failures (network errors, timeouts, 5xx, 429) are retried per
// the configured policy. 4xx responses other than 429 and unparseable 2xx
// bodies are fatal and terminate immediately. All failures come back as
// errors; none are thrown across the boundary as panics.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	requestURL, err := buildURL(rawURL, params)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}
	endpoint := endpointLabel(requestURL)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	if body, ok := f.cacheLookup(ctx, requestURL); ok {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
		// Corrupt cached body: fall through to the network.
		f.logger.Warn().Str("url", requestURL).Msg("Discarding undecodable cache entry")
	}

	var body []byte
	err = retryWithBackoff(ctx, f.cfg, f.logger, func(attempt int) error {
		return f.attempt(ctx, requestURL, endpoint, attempt, &body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		f.logger.Error().
			Str("url", requestURL).
			Err(err).
			Msg("Response body is not valid JSON")
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	f.cacheStore(ctx, requestURL, body)
	return nil
}

// attempt performs a single GET attempt using a freshly acquired handle.
func (f *Fetcher) attempt(ctx context.Context, requestURL, endpoint string, attempt int, body *[]byte) error {
	if f.cooldown != nil {
		if err := f.cooldown.Wait(ctx); err != nil {
			return err
		}
	}

	handle := f.pool.Acquire()

	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	f.logger.Info().
		Int("attempt", attempt).
		Str("url", requestURL).
		Msg("Fetching catalog page")

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := handle.Client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		f.logger.Warn().
			Int("attempt", attempt).
			Str("url", requestURL).
			Str("error_class", string(ErrorClassNetwork)).
			Err(err).
			Msg("HTTP request failed")
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		f.logger.Warn().
			Int("attempt", attempt).
			Str("url", requestURL).
			Err(err).
			Msg("Reading response body failed")
		return err
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Redirects are followed by the handle's client, so anything below
	// 400 that still reaches us counts as success.
	if resp.StatusCode < 400 {
		*body = data
		if f.cooldown != nil {
			f.cooldown.ObserveSuccess()
		}
		return nil
	}

	class := classifyStatus(resp.StatusCode)
	retryAfter := parseRetryAfter(resp.Header)
	if class == ErrorClassRateLimit && f.cooldown != nil {
		f.cooldown.Observe429(retryAfter)
	}

	f.logger.Warn().
		Int("attempt", attempt).
		Str("url", requestURL).
		Int("status_code", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("Catalog API request error")

	return &APIError{
		StatusCode: resp.StatusCode,
		Class:      class,
		URL:        requestURL,
		Message:    resp.Status,
		RetryAfter: retryAfter,
	}
}

// cacheLookup returns a cached body for the URL when the cache is enabled
// and holds a fresh entry. Cache errors degrade to a plain miss.
func (f *Fetcher) cacheLookup(ctx context.Context, requestURL string) ([]byte, bool) {
	if f.cache == nil {
		return nil, false
	}

	key, err := cache.KeyForURL(requestURL)
	if err != nil {
		return nil, false
	}

	entry, err := f.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Str("url", requestURL).Msg("Cache get error")
		}
		return nil, false
	}

	f.logger.Debug().
		Str("url", requestURL).
		Dur("ttl", entry.TTL()).
		Msg("Page cache hit")
	return entry.Data, true
}

// cacheStore records a successful response body. Failures are logged and
// otherwise ignored; caching is best-effort.
func (f *Fetcher) cacheStore(ctx context.Context, requestURL string, body []byte) {
	if f.cache == nil || f.cacheTTL <= 0 {
		return
	}

	key, err := cache.KeyForURL(requestURL)
	if err != nil {
		return
	}

	entry := cache.NewEntry(body, http.StatusOK, f.cacheTTL)
	if err := f.cache.Set(ctx, key, entry); err != nil {
		f.logger.Warn().Err(err).Str("url", requestURL).Msg("Failed to cache response")
		return
	}

	f.logger.Debug().
		Str("url", requestURL).
		Dur("ttl", f.cacheTTL).
		Msg("Cached page response")
}

// buildURL merges params into rawURL's query string. Parameters already
// present in the URL win; pagination next-links arrive fully formed.
func buildURL(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for key, values := range params {
		if q.Has(key) {
			continue
		}
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// endpointLabel reduces a URL to its path for metric labels, keeping
// cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}

// parseRetryAfter reads a delay-seconds Retry-After header.
// HTTP-date forms and absent headers yield zero.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
