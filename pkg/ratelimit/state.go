// Package ratelimit implements client-side 429 cooldown tracking.
// It observes rate-limited responses and gates subsequent attempts so a
// struggling endpoint is not hammered back-to-back by the retry loop.
package ratelimit

import (
	"time"
)

// Cooldown bounds.
const (
	// BaseCooldown is the cooldown applied after the first 429 in a streak.
	BaseCooldown = 1 * time.Second

	// MaxCooldown caps the escalated cooldown regardless of streak length.
	MaxCooldown = 60 * time.Second
)

// State represents the current cooldown state.
type State struct {
	// Consecutive is the number of 429 responses seen without an
	// intervening success.
	Consecutive int

	// Until is when the current cooldown window ends.
	Until time.Time

	// LastHit is when the most recent 429 was observed.
	LastHit time.Time
}

// Active returns true while the cooldown window is still open.
func (s State) Active() bool {
	return time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown window.
// Returns 0 if the window has already closed.
func (s State) Remaining() time.Duration {
	d := time.Until(s.Until)
	if d < 0 {
		return 0
	}
	return d
}

// nextCooldown returns the escalated cooldown for the current streak:
// BaseCooldown doubled per consecutive hit, capped at MaxCooldown.
func (s *State) nextCooldown() time.Duration {
	d := BaseCooldown
	for i := 1; i < s.Consecutive; i++ {
		d *= 2
		if d >= MaxCooldown {
			return MaxCooldown
		}
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
