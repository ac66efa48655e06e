package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached catalog page.
type Key struct {
	// Endpoint is the request path (e.g. "/api/v1/produits/").
	Endpoint string

	// Query holds the request query parameters (page, size, ...).
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: prixnc:endpoint:param1=val1:param2=val2
//
// Example:
//
//	prixnc:api/v1/produits:page=0:size=1000
func (k Key) String() string {
	parts := []string{"prixnc"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism.
	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// KeyForURL builds a Key from a full request URL.
func KeyForURL(rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("parse cache key url: %w", err)
	}
	return Key{Endpoint: u.Path, Query: u.Query()}, nil
}
