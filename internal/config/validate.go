package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.PageSize < 1 || c.API.PageSize > 1000 {
		return fmt.Errorf("api.page_size must be between 1 and 1000, got %d", c.API.PageSize)
	}

	if c.Pool.Size < 1 {
		return errors.New("pool.size must be >= 1")
	}

	if c.Retry.Timeout <= 0 {
		return errors.New("retry.timeout must be > 0")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if c.Retry.MinBackoff <= 0 {
		return errors.New("retry.min_backoff must be > 0")
	}
	if c.Retry.MaxBackoff < c.Retry.MinBackoff {
		return fmt.Errorf("retry.max_backoff (%s) cannot be less than min_backoff (%s)",
			c.Retry.MaxBackoff, c.Retry.MinBackoff)
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be >= 1, got %v", c.Retry.BackoffMultiplier)
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required when cache is enabled")
	}

	if !c.Export.HasTarget() {
		return errors.New("at least one export target must be configured")
	}

	return nil
}
