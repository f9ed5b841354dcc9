package retry

import (
	"math"
	"time"
)

// Backoff computes the delay after a failed attempt. Attempt is zero-based.
type Backoff interface {
	Delay(attempt uint) time.Duration
}

// ExpBackoff grows the delay as Base * Factor^attempt, clamped to [Base, Max].
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExpBackoff) Delay(attempt uint) time.Duration {
	// Compare before converting: large attempts overflow int64.
	f := float64(b.Base) * math.Pow(b.Factor, float64(attempt))

	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f >= float64(b.Max):
		return b.Max
	case f < float64(b.Base):
		return b.Base
	default:
		return time.Duration(f)
	}
}

// ConstantBackoff waits the same duration after every attempt.
type ConstantBackoff time.Duration

func (b ConstantBackoff) Delay(uint) time.Duration {
	return time.Duration(b)
}
