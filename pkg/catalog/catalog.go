// Package catalog drives full-catalog retrieval from the prix.nc products
// API by following the server-supplied pagination cursor embedded in each
// page response.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/opendata-nc/prixnc-client/pkg/logging"
)

// Catalog API defaults. The server enforces the page size maximum.
const (
	DefaultBaseURL  = "https://prix.nc/api/v1/produits/"
	DefaultPageSize = 1000
	MaxPageSize     = 1000
)

// MetadataKey is the reserved per-record navigation field stripped before
// export.
const MetadataKey = "_links"

// Record is one raw product as returned by the API.
type Record = map[string]any

// Link is a followable relation inside a page envelope.
type Link struct {
	Href string `json:"href"`
}

// PageResponse is the envelope of one catalog page.
type PageResponse struct {
	Embedded struct {
		Produits []Record `json:"produits"`
	} `json:"_embedded"`
	Links map[string]Link `json:"_links"`
}

// Next returns the URL of the following page. The second return is false
// on the terminal page.
func (p *PageResponse) Next() (string, bool) {
	link, ok := p.Links["next"]
	if !ok || link.Href == "" {
		return "", false
	}
	return link.Href, true
}

// Fetcher is the request surface the paginator needs from the resilient
// HTTP client.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
}

// ConnectionReleaser tears down pooled connection handles at the end of a
// run.
type ConnectionReleaser interface {
	CloseAll()
}

// Config holds pagination parameters.
type Config struct {
	// BaseURL is the products endpoint. Empty means DefaultBaseURL.
	BaseURL string

	// PageSize is the requested batch size. Values outside [1, MaxPageSize]
	// fall back to DefaultPageSize.
	PageSize int
}

// Service retrieves the complete product catalog page by page.
//
// Pages are fetched strictly sequentially: a page is fully processed and
// its continuation link resolved before the next fetch begins. Records
// accumulate in arrival order. A run is all-or-nothing: any fetch failure
// aborts with zero records.
type Service struct {
	fetcher Fetcher
	pool    ConnectionReleaser
	cfg     Config
	logger  zerolog.Logger
}

// NewService creates a catalog extraction service.
func NewService(fetcher Fetcher, pool ConnectionReleaser, cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = DefaultPageSize
	}

	return &Service{
		fetcher: fetcher,
		pool:    pool,
		cfg:     cfg,
		logger:  logging.NewLogger("catalog"),
	}
}

// LoadAll fetches every catalog page and returns the accumulated raw
// records in page-then-within-page order.
//
// The connection pool is released exactly once per run, on both the
// success and failure paths. Call LoadAll at most once per Service.
func (s *Service) LoadAll(ctx context.Context) ([]Record, error) {
	defer s.pool.CloseAll()

	var records []Record

	pageURL := s.cfg.BaseURL
	params := url.Values{
		"page": {"0"},
		"size": {strconv.Itoa(s.cfg.PageSize)},
	}

	pages := 0
	for {
		var page PageResponse
		if err := s.fetcher.GetJSON(ctx, pageURL, params, &page); err != nil {
			s.logger.Error().
				Str("url", pageURL).
				Int("pages_loaded", pages).
				Err(err).
				Msg("Failed loading catalog page")
			return nil, fmt.Errorf("load catalog page %d: %w", pages, err)
		}

		records = append(records, page.Embedded.Produits...)
		pages++

		s.logger.Debug().
			Int("page", pages).
			Int("records", len(records)).
			Msg("Page accumulated")

		next, ok := page.Next()
		if !ok {
			break
		}

		// Next links arrive fully formed; stop adding page parameters.
		pageURL = next
		params = nil
	}

	s.logger.Info().
		Int("pages", pages).
		Int("records", len(records)).
		Msg("Catalog loading complete")

	return records, nil
}
