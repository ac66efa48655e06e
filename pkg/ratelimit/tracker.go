package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prixnc_rate_limit_hits_total",
		Help: "Total number of 429 responses observed",
	})

	rateLimitCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prixnc_rate_limit_cooldown_seconds",
		Help: "Duration of the most recently scheduled cooldown window",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prixnc_rate_limit_waits_total",
		Help: "Total number of attempts delayed by an active cooldown",
	})
)

// Tracker records 429 observations and gates attempts while a cooldown
// window is open. It is in-process state: one extraction run, one tracker.
type Tracker struct {
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewTracker creates a new cooldown tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Observe429 records a rate-limited response. The cooldown escalates with
// consecutive hits; a server-supplied Retry-After takes precedence when it
// is longer than the escalated value. Either way the window is capped at
// MaxCooldown.
func (t *Tracker) Observe429(retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Consecutive++
	t.state.LastHit = time.Now()

	cooldown := t.state.nextCooldown()
	if retryAfter > cooldown {
		cooldown = retryAfter
	}
	if cooldown > MaxCooldown {
		cooldown = MaxCooldown
	}
	t.state.Until = time.Now().Add(cooldown)

	rateLimitHitsTotal.Inc()
	rateLimitCooldownSeconds.Set(cooldown.Seconds())

	t.logger.Warn().
		Int("consecutive", t.state.Consecutive).
		Dur("cooldown", cooldown).
		Msg("Rate limited, cooldown scheduled")
}

// ObserveSuccess clears the 429 streak. An already-open cooldown window is
// left to expire on its own.
func (t *Tracker) ObserveSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Consecutive = 0
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until any active cooldown window has closed.
// It returns early with an error if the context is cancelled.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	remaining := t.state.Remaining()
	t.mu.Unlock()

	if remaining <= 0 {
		return nil
	}

	rateLimitWaitsTotal.Inc()
	t.logger.Debug().
		Dur("remaining", remaining).
		Msg("Waiting out rate limit cooldown")

	select {
	case <-ctx.Done():
		return fmt.Errorf("cooldown wait: %w", ctx.Err())
	case <-time.After(remaining):
		return nil
	}
}
