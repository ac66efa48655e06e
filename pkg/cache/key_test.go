package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "endpoint only",
			key:      Key{Endpoint: "/api/v1/produits/"},
			expected: "prixnc:api/v1/produits",
		},
		{
			name: "with query params sorted",
			key: Key{
				Endpoint: "/api/v1/produits/",
				Query:    url.Values{"size": {"1000"}, "page": {"0"}},
			},
			expected: "prixnc:api/v1/produits:page=0:size=1000",
		},
		{
			name:     "empty endpoint",
			key:      Key{},
			expected: "prixnc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key{
		Endpoint: "/api/v1/produits/",
		Query:    url.Values{"page": {"3"}, "size": {"500"}},
	}
	b := Key{
		Endpoint: "/api/v1/produits/",
		Query:    url.Values{"size": {"500"}, "page": {"3"}},
	}

	if a.String() != b.String() {
		t.Errorf("Key strings differ for identical params: %q vs %q", a.String(), b.String())
	}
}

func TestKeyForURL(t *testing.T) {
	key, err := KeyForURL("https://prix.nc/api/v1/produits/?page=2&size=100")
	if err != nil {
		t.Fatalf("KeyForURL returned error: %v", err)
	}

	expected := "prixnc:api/v1/produits:page=2:size=100"
	if key.String() != expected {
		t.Errorf("String() = %q, want %q", key.String(), expected)
	}
}

func TestKeyForURL_Invalid(t *testing.T) {
	if _, err := KeyForURL("://not-a-url"); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
