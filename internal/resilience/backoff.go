package resilience

import (
	"math/rand/v2"
	"time"
)

// Backoff returns base doubled for every attempt after the first, capped at
// limit when limit is positive, with +/- jitter expressed as a fraction.
func Backoff(base, limit time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			d = limit
			break
		}
	}
	if limit > 0 && d > limit {
		d = limit
	}
	if jitter <= 0 {
		return d
	}
	if jitter > 1 {
		jitter = 1
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}
