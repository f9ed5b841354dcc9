package retry

import "context"

// Attempts is the maximum number of calls Do makes. Zero means unlimited.
type Attempts uint

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-based attempt number Do stored in ctx, or 0
// outside a retry loop.
func Attempt(ctx context.Context) uint {
	attempt, _ := ctx.Value(attemptKey).(uint)

	return attempt
}
