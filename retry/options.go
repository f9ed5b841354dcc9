package retry

import (
	"errors"

	"github.com/jonboulle/clockwork"
)

// Option configures Do and DoValue.
type Option func(*options)

type options struct {
	attempts Attempts
	backoff  Backoff
	jitter   Jitter
	clock    clockwork.Clock
	retryIf  func(error) bool
}

func (o *options) retryable(err error) bool {
	var retryErr Error
	if errors.As(err, &retryErr) && !retryErr.Temporary() {
		return false
	}

	if o.retryIf != nil {
		return o.retryIf(err)
	}

	return true
}

// WithAttempts caps the number of calls, including the first. Zero means no cap.
func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = a
	}
}

// WithBackoff sets the delay strategy between attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// WithJitter sets how much randomness is applied to each delay.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithClock sets the clock delays are measured on.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRetryIf restricts retries to errors the predicate accepts. Other
// errors are returned immediately, as if wrapped with Abort.
func WithRetryIf(pred func(error) bool) Option {
	return func(o *options) {
		o.retryIf = pred
	}
}
