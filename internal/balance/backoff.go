package balance

import (
	"math"
	"time"
)

// Retry defaults for rate-limited balance queries.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
)

// NextDelay returns the wait before retry number attempt (1-based) with the
// default schedule: 1s, 2s, 4s.
func NextDelay(attempt int) time.Duration {
	return Backoff(attempt, DefaultInitialDelay, DefaultMaxDelay)
}

// Backoff doubles initial for each attempt after the first, capped at maxDelay.
// Attempts below 1 need no wait.
func Backoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 1 || initial <= 0 {
		return 0
	}
	d := initial
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && d >= maxDelay/2 {
			return maxDelay
		}
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
