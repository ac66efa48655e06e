package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://prix.nc/api/v1/produits/"
	DefaultPageSize          = 1000
	DefaultPoolSize          = 3
	DefaultTimeout           = 5 * time.Second
	DefaultMaxAttempts       = 3
	DefaultMinBackoff        = 2 * time.Second
	DefaultMaxBackoff        = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultRedisAddr         = "localhost:6379"
	DefaultCacheTTL          = 15 * time.Minute
	DefaultLogLevel          = "info"
	DefaultPDFTitle          = "Produits prix.nc"
)

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}

	// Pool defaults
	if c.Pool.Size == 0 {
		c.Pool.Size = DefaultPoolSize
	}

	// Retry defaults
	if c.Retry.Timeout == 0 {
		c.Retry.Timeout = DefaultTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.MinBackoff == 0 {
		c.Retry.MinBackoff = DefaultMinBackoff
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = DefaultMaxBackoff
	}
	if c.Retry.BackoffMultiplier == 0 {
		c.Retry.BackoffMultiplier = DefaultBackoffMultiplier
	}

	// Cache defaults
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = DefaultRedisAddr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}

	// Export defaults
	if c.Export.PDFTitle == "" {
		c.Export.PDFTitle = DefaultPDFTitle
	}
}
