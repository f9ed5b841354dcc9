//nolint:err113 // tests define ad hoc errors
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noDelay = WithBackoff(ConstantBackoff(0)) //nolint:gochecknoglobals

func TestDo_Success(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(t.Context(), func(context.Context) error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()

	var attempts []uint

	err := Do(t.Context(), func(ctx context.Context) error {
		attempts = append(attempts, Attempt(ctx))
		if len(attempts) < 3 {
			return errors.New("temporary")
		}

		return nil
	}, WithAttempts(5), noDelay)

	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1, 2}, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	testErr := errors.New("still failing")

	err := Do(t.Context(), func(context.Context) error {
		calls++

		return testErr
	}, WithAttempts(3), noDelay)

	require.ErrorIs(t, err, testErr)
	assert.Equal(t, 3, calls)
}

func TestDo_Abort(t *testing.T) {
	t.Parallel()

	calls := 0
	testErr := errors.New("not found")

	err := Do(t.Context(), func(context.Context) error {
		calls++

		return Abort(testErr)
	}, WithAttempts(5), noDelay)

	assert.Same(t, testErr, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIf(t *testing.T) {
	t.Parallel()

	conflict := errors.New("conflict")
	fatal := errors.New("fatal")
	errs := []error{conflict, conflict, fatal}
	calls := 0

	err := Do(t.Context(), func(context.Context) error {
		calls++

		return errs[calls-1]
	}, WithAttempts(10), noDelay, WithRetryIf(func(err error) bool {
		return errors.Is(err, conflict)
	}))

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 3, calls)
}

func TestDo_WaitsOnClock(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	calls := 0
	done := make(chan error, 1)

	go func() {
		done <- Do(t.Context(), func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("first")
			}

			return nil
		},
			WithClock(clock),
			WithJitter(WithoutJitter),
			WithBackoff(ExpBackoff{Base: time.Second, Max: time.Minute, Factor: 2}))
	}()

	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))

	select {
	case <-done:
		t.Fatal("Do returned before the backoff elapsed")
	default:
	}

	clock.Advance(time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, 2, calls)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		done <- Do(ctx, func(context.Context) error {
			return errors.New("always")
		}, WithClock(clock), WithAttempts(0))
	}()

	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Do(ctx, func(context.Context) error {
		called = true

		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDoValue(t *testing.T) {
	t.Parallel()

	calls := 0
	value, err := DoValue(t.Context(), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "partial", errors.New("retry")
		}

		return "done", nil
	}, noDelay)

	require.NoError(t, err)
	assert.Equal(t, "done", value)

	value, err = DoValue(t.Context(), func(context.Context) (string, error) {
		return "partial", errors.New("fails")
	}, WithAttempts(2), noDelay)

	require.Error(t, err)
	assert.Empty(t, value)
}

func TestExpBackoff(t *testing.T) {
	t.Parallel()

	backoff := ExpBackoff{Base: 100 * time.Millisecond, Max: time.Second, Factor: 2}

	assert.Equal(t, 100*time.Millisecond, backoff.Delay(0))
	assert.Equal(t, 200*time.Millisecond, backoff.Delay(1))
	assert.Equal(t, 800*time.Millisecond, backoff.Delay(3))
	assert.Equal(t, time.Second, backoff.Delay(10))
	assert.Equal(t, time.Second, backoff.Delay(37))
	assert.Equal(t, time.Second, backoff.Delay(64))
	assert.Equal(t, time.Second, backoff.Delay(1100))

	shrinking := ExpBackoff{Base: time.Second, Max: time.Minute, Factor: 0.5}
	assert.Equal(t, time.Second, shrinking.Delay(4))
}

func TestJitter(t *testing.T) {
	t.Parallel()

	const delay = time.Second

	assert.Equal(t, delay, WithoutJitter.apply(delay))
	assert.Equal(t, time.Duration(0), FullJitter.apply(0))

	for range 100 {
		full := FullJitter.apply(delay)
		assert.GreaterOrEqual(t, full, time.Duration(0))
		assert.Less(t, full, delay)

		equal := EqualJitter.apply(delay)
		assert.GreaterOrEqual(t, equal, delay/2)
		assert.LessOrEqual(t, equal, delay)
	}
}

func TestAttemptOutsideLoop(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint(0), Attempt(t.Context()))
}
