package statemachine

import (
	"context"
	"fmt"
)

// State is the constraint for state values. States are compared with ==
// and rendered through String for display names, logs, metrics and spans.
// A typical state type is a small integer enum with a String method.
type State interface {
	comparable
	fmt.Stringer
}

// Hook runs when a state is entered or exited. It receives the machine's
// context value and may block; returning an error aborts the transition.
type Hook[C any] func(ctx context.Context, smCtx C) error

// Guard decides whether a transition to target, which the graph already
// allows, is currently permitted.
type Guard[S State, C any] func(ctx context.Context, target S, smCtx C) (bool, error)

// Observer receives an event after every successful transition.
type Observer[S State, C any] func(event TransitionEvent[S, C])

// HookPhase identifies which hook of a state is running.
type HookPhase string

const (
	PhaseEnter HookPhase = "enter"
	PhaseExit  HookPhase = "exit"
)
