package statemachine

import (
	"errors"
	"fmt"
)

// Construction errors. These indicate a programming error on the caller's side.
var (
	// ErrNilContext indicates that the machine was given a nil context value.
	ErrNilContext = errors.New("state machine context cannot be nil")
	// ErrNoStates indicates that the state enumeration was empty.
	ErrNoStates = errors.New("at least one state is required")
	// ErrUnknownInitialState indicates that the initial state is not part of the enumeration.
	ErrUnknownInitialState = errors.New("initial state is not a member of the state set")
)

// Transition errors. They are reported through TransitionResult.Err, never returned.
var (
	// ErrTransitionNotAllowed indicates that no edge was declared for the requested transition.
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrGuardRejected indicates that the source state's guard returned false.
	ErrGuardRejected = errors.New("transition rejected by guard")
	// ErrGuardFailed indicates that the source state's guard returned an error or panicked.
	ErrGuardFailed = errors.New("guard evaluation failed")
	// ErrHookFailed indicates that an enter or exit hook returned an error.
	ErrHookFailed = errors.New("hook failed")
	// ErrHookPanicked indicates that an enter or exit hook panicked.
	ErrHookPanicked = errors.New("hook panicked")
	// ErrHookTimeout indicates that a hook ran longer than the machine's hook timeout.
	ErrHookTimeout = errors.New("hook timed out")
	// ErrReentrantTransition indicates that code running inside a transition
	// asked the same machine for another one.
	ErrReentrantTransition = errors.New("transition requested while the machine is held by the caller")
)

// Definition errors.
var (
	// ErrDefinitionNameRequired indicates that a definition name is required.
	ErrDefinitionNameRequired = errors.New("definition name is required")
	// ErrStateRequired indicates that at least one state is required.
	ErrStateRequired = errors.New("at least one state is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrTransitionFromRequired indicates that a transition from state is required.
	ErrTransitionFromRequired = errors.New("transition from state is required")
	// ErrTransitionToRequired indicates that a transition needs at least one target.
	ErrTransitionToRequired = errors.New("transition to state is required")
	// ErrUnknownStateName indicates that a name does not match any state.
	ErrUnknownStateName = errors.New("unknown state name")
	// ErrNoDefinitionLoader indicates that no definition loader is registered.
	ErrNoDefinitionLoader = errors.New("no definition loader registered; use SetDefinitionLoader() or provide a file path")
)

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// HookError wraps an error raised by an enter or exit hook.
type HookError struct {
	State string
	Phase HookPhase
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of state %s: %v", e.Phase, e.State, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to fmt.Stringer, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From: from.String(),
		To:   to.String(),
		Err:  err,
	}
}

// IsRejection reports whether err means the transition was refused before
// any hook ran, either by the graph or by a guard.
func IsRejection(err error) bool {
	return isRejection(err)
}

func isRejection(err error) bool {
	return errors.Is(err, ErrTransitionNotAllowed) ||
		errors.Is(err, ErrGuardRejected) ||
		errors.Is(err, ErrGuardFailed)
}
