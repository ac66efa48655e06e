package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// backoffDelay computes the wait after the n-th failed attempt (n >= 1):
//
//	delay = clamp(MinBackoff * Multiplier^n, MinBackoff, MaxBackoff)
//
// The schedule is deterministic and monotonically non-decreasing.
func backoffDelay(cfg Config, attempt int) time.Duration {
	d := time.Duration(float64(cfg.MinBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt)))
	if d < cfg.MinBackoff {
		d = cfg.MinBackoff
	}
	if d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	return d
}

// retryWithBackoff executes fn up to cfg.MaxAttempts times with exponential
// backoff between attempts. Fatal classifications (client errors, decode
// failures) abort immediately without consuming remaining attempts. The
// backoff wait blocks the calling goroutine and respects ctx cancellation.
func retryWithBackoff(ctx context.Context, cfg Config, logger zerolog.Logger, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		class := classify(err)
		errorsTotal.WithLabelValues(string(class)).Inc()

		if !shouldRetry(class) {
			// Fatal classification: terminate without exhausting attempts.
			return err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()

		delay := backoffDelay(cfg, attempt)

		// A server-requested Retry-After dominates the computed delay,
		// still capped at MaxBackoff.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
			if delay > cfg.MaxBackoff {
				delay = cfg.MaxBackoff
			}
		}

		retryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

		logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}

	class := classify(lastErr)
	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
