package retry

import (
	"math/rand/v2"
	"time"
)

// Jitter is the share of each delay that is randomized, from 0 (none) to
// 1 (uniform in [0, delay)). Negative values disable jitter.
type Jitter float64

const (
	// EqualJitter waits delay/2 plus a random share of the other half.
	EqualJitter Jitter = 0.5
	// FullJitter waits a uniformly random duration up to the delay.
	FullJitter Jitter = 1.0
	// WithoutJitter waits exactly the backoff delay.
	WithoutJitter Jitter = -1.0
)

func (j Jitter) apply(d time.Duration) time.Duration {
	if j <= 0 || d <= 0 {
		return d
	}

	r := rand.Float64() * float64(d) //nolint:gosec // timing only

	if j < 1.0 {
		r = float64(j)*r + float64(1.0-j)*float64(d)
	}

	return time.Duration(r)
}
