package statemachine

import (
	"context"
	"fmt"
	"time"
)

// TransitionResult is the outcome of a transition attempt. Results are
// returned by value and never modified by the machine afterwards.
type TransitionResult[S State] struct {
	// Success is true when the machine is now in the requested state.
	Success bool

	// PreviousState is the state the machine left. It is only meaningful
	// when HasPreviousState is true, which is the case for every successful
	// result, self-transitions included.
	PreviousState    S
	HasPreviousState bool

	// CurrentState is the machine's state once the attempt finished. For a
	// failure this is the unchanged, pre-attempt state.
	CurrentState S

	// Error is a human-readable description of the failure. It is empty
	// exactly when Success is true.
	Error string

	// Err is the failure as an error value, for errors.Is and errors.As.
	Err error

	// Cancelled marks failures caused by the caller's context being done,
	// either while waiting for the machine or inside a hook.
	Cancelled bool

	// Duration is the time spent running hooks. It is zero for
	// self-transitions and for attempts rejected before any hook ran.
	Duration time.Duration

	// Timestamp is when the attempt completed, in UTC.
	Timestamp time.Time
}

func succeeded[S State](previous, current S, duration time.Duration) TransitionResult[S] {
	return TransitionResult[S]{
		Success:          true,
		PreviousState:    previous,
		HasPreviousState: true,
		CurrentState:     current,
		Duration:         duration,
		Timestamp:        time.Now().UTC(),
	}
}

func failed[S State](current S, err error, cancelled bool, duration time.Duration) TransitionResult[S] {
	return TransitionResult[S]{
		Success:      false,
		CurrentState: current,
		Error:        err.Error(),
		Err:          err,
		Cancelled:    cancelled,
		Duration:     duration,
		Timestamp:    time.Now().UTC(),
	}
}

// Outcome classifies the result for logs and metrics.
func (r TransitionResult[S]) Outcome() string {
	switch {
	case r.Success:
		return outcomeSuccess
	case r.Cancelled:
		return outcomeCancelled
	case isRejection(r.Err):
		return outcomeRejected
	default:
		return outcomeError
	}
}

func (r TransitionResult[S]) String() string {
	if r.Success {
		return fmt.Sprintf("%s -> %s (%s)", r.PreviousState, r.CurrentState, r.Duration)
	}

	return fmt.Sprintf("failed in %s: %s", r.CurrentState, r.Error)
}

// TransitionEvent is delivered to observers after a successful transition.
// It is never produced for failed attempts or self-transitions.
type TransitionEvent[S State, C any] struct {
	// Ctx is the context of the transition. Transitions requested with it
	// fail with ErrReentrantTransition while the machine is still held.
	Ctx       context.Context //nolint:containedctx
	From      S
	To        S
	Context   C
	Timestamp time.Time
	Duration  time.Duration
}
