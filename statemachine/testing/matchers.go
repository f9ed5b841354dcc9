package testing

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Matcher errors.
var (
	ErrNoTransitions      = errors.New("no transitions recorded")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
	ErrStateNotEntered    = errors.New("state was not entered")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrUnexpectedState    = errors.New("unexpected final state")
	ErrHooksOverlapped    = errors.New("hooks overlapped")
	ErrTransitionTooSlow  = errors.New("transition exceeded time limit")
)

// Matcher defines an assertion matcher interface.
type Matcher[S statemachine.State] interface {
	Match(obs Observation[S]) (bool, error)
	Description() string
}

// AssertAll runs every matcher against the observation and reports each
// failure. It returns true if all matchers passed.
func AssertAll[S statemachine.State](t *testing.T, obs Observation[S], matchers ...Matcher[S]) bool {
	t.Helper()

	ok := true

	for _, matcher := range matchers {
		passed, err := matcher.Match(obs)
		if !passed {
			ok = false

			t.Errorf("%s: %v", matcher.Description(), err)
		}
	}

	return ok
}

// StateWasEntered creates a matcher that checks if a state was entered.
func StateWasEntered[S statemachine.State](state S) Matcher[S] {
	return &stateEnteredMatcher[S]{state: state}
}

type stateEnteredMatcher[S statemachine.State] struct {
	state S
}

func (m *stateEnteredMatcher[S]) Match(obs Observation[S]) (bool, error) {
	for _, entry := range obs.Trace {
		if entry.To == m.state {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotEntered, m.state)
}

func (m *stateEnteredMatcher[S]) Description() string {
	return fmt.Sprintf("state '%s' should be entered", m.state)
}

// TransitionWasTaken creates a matcher that checks if a transition occurred.
func TransitionWasTaken[S statemachine.State](from, to S) Matcher[S] {
	return &transitionTakenMatcher[S]{from: from, to: to}
}

type transitionTakenMatcher[S statemachine.State] struct {
	from S
	to   S
}

func (m *transitionTakenMatcher[S]) Match(obs Observation[S]) (bool, error) {
	for _, entry := range obs.Trace {
		if entry.From == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher[S]) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// PathWas creates a matcher that checks the exact sequence of states.
func PathWas[S statemachine.State](path ...S) Matcher[S] {
	return &pathMatcher[S]{path: path}
}

type pathMatcher[S statemachine.State] struct {
	path []S
}

func (m *pathMatcher[S]) Match(obs Observation[S]) (bool, error) {
	if !slices.Equal(obs.Path, m.path) {
		return false, fmt.Errorf("%w: path was %v", ErrTransitionNotTaken, obs.Path)
	}

	return true, nil
}

func (m *pathMatcher[S]) Description() string {
	return fmt.Sprintf("path should be %v", m.path)
}

// FinalState creates a matcher that checks the machine's current state.
func FinalState[S statemachine.State](state S) Matcher[S] {
	return &finalStateMatcher[S]{state: state}
}

type finalStateMatcher[S statemachine.State] struct {
	state S
}

func (m *finalStateMatcher[S]) Match(obs Observation[S]) (bool, error) {
	if obs.Current != m.state {
		return false, fmt.Errorf("%w: expected '%s', got '%s'", ErrUnexpectedState, m.state, obs.Current)
	}

	return true, nil
}

func (m *finalStateMatcher[S]) Description() string {
	return fmt.Sprintf("final state should be '%s'", m.state)
}

// NoOverlap creates a matcher that checks that no two recorded hooks ran
// at the same time.
func NoOverlap[S statemachine.State]() Matcher[S] {
	return &noOverlapMatcher[S]{}
}

type noOverlapMatcher[S statemachine.State] struct{}

func (m *noOverlapMatcher[S]) Match(obs Observation[S]) (bool, error) {
	for i, a := range obs.Hooks {
		for _, b := range obs.Hooks[i+1:] {
			if a.Overlaps(b) {
				return false, fmt.Errorf("%w: '%s' and '%s'", ErrHooksOverlapped, a.Name, b.Name)
			}
		}
	}

	return true, nil
}

func (m *noOverlapMatcher[S]) Description() string {
	return "hooks should never overlap"
}

// TransitionsTookLessThan creates a matcher that checks the total hook time
// of all recorded transitions.
func TransitionsTookLessThan[S statemachine.State](duration time.Duration) Matcher[S] {
	return &durationMatcher[S]{maxDuration: duration}
}

type durationMatcher[S statemachine.State] struct {
	maxDuration time.Duration
}

func (m *durationMatcher[S]) Match(obs Observation[S]) (bool, error) {
	if len(obs.Trace) == 0 {
		return false, ErrNoTransitions
	}

	total := time.Duration(0)
	for _, entry := range obs.Trace {
		total += entry.Duration
	}

	if total > m.maxDuration {
		return false, fmt.Errorf("%w: took %s, max %s", ErrTransitionTooSlow, total, m.maxDuration)
	}

	return true, nil
}

func (m *durationMatcher[S]) Description() string {
	return fmt.Sprintf("transitions should take less than %s", m.maxDuration)
}

// All creates a matcher that requires all sub-matchers to pass.
func All[S statemachine.State](matchers ...Matcher[S]) Matcher[S] {
	return &allMatcher[S]{matchers: matchers}
}

type allMatcher[S statemachine.State] struct {
	matchers []Matcher[S]
}

func (m *allMatcher[S]) Match(obs Observation[S]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(obs)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher[S]) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any[S statemachine.State](matchers ...Matcher[S]) Matcher[S] {
	return &anyMatcher[S]{matchers: matchers}
}

type anyMatcher[S statemachine.State] struct {
	matchers []Matcher[S]
}

func (m *anyMatcher[S]) Match(obs Observation[S]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(obs)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher[S]) Description() string {
	return "at least one matcher should pass"
}
