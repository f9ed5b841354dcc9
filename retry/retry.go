// Package retry re-runs an operation until it succeeds, returns a permanent
// error, runs out of attempts or its context ends. Delays between attempts
// follow a Backoff with Jitter applied, and are measured on a clockwork.Clock
// so callers can drive them from tests.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return save(ctx)
//	}, retry.WithAttempts(5), retry.WithRetryIf(isConflict))
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultAttempts      = 4
	defaultBaseDelay     = 100 * time.Millisecond
	defaultMaxDelay      = 2 * time.Second
	defaultBackoffFactor = 2.0
)

func defaultOptions() *options {
	return &options{
		attempts: defaultAttempts,
		backoff: ExpBackoff{
			Base:   defaultBaseDelay,
			Max:    defaultMaxDelay,
			Factor: defaultBackoffFactor,
		},
		jitter: FullJitter,
		clock:  clockwork.NewRealClock(),
	}
}

// Do calls f until it succeeds. With no options it makes 4 attempts with
// exponential backoff from 100ms to 2s and full jitter. The last error is
// returned when attempts run out; a permanent error is returned unwrapped
// as soon as it occurs.
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	o := defaultOptions()

	for _, opt := range opts {
		opt(o)
	}

	return do(ctx, o, f)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T

	err := Do(ctx, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	}, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

func do(ctx context.Context, opts *options, operation func(ctx context.Context) error) error {
	var err error

	for attempt := uint(0); opts.attempts == 0 || Attempts(attempt) < opts.attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = operation(withAttempt(ctx, attempt))
		if err == nil {
			return nil
		}

		if !opts.retryable(err) {
			var p *permanentError
			if errors.As(err, &p) {
				return p.error
			}

			return err
		}

		if opts.attempts != 0 && Attempts(attempt+1) >= opts.attempts {
			break
		}

		timer := opts.clock.NewTimer(opts.jitter.apply(opts.backoff.Delay(attempt)))

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.Chan():
		}
	}

	return err
}
