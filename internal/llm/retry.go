package llm

import (
	"math/rand"
	"time"
)

// ExpBackoff returns initial*2^attempt capped at max.
func ExpBackoff(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// WithJitter widens d to a random value in [d/2, d+d/2).
func WithJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)))
}
