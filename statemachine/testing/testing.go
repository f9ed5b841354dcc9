// Package testing provides testing utilities for state machine workflows.
//
//nolint:varnamelen // short names idiomatic
package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// TraceEntry records a single successful transition.
type TraceEntry[S statemachine.State] struct {
	Timestamp time.Time
	From      S
	To        S
	Duration  time.Duration
}

// Recorder captures the state change events of a machine.
type Recorder[S statemachine.State, C any] struct {
	mu          sync.Mutex
	initial     S
	trace       []TraceEntry[S]
	unsubscribe func()
}

// NewRecorder subscribes a recorder to the machine's state changes.
func NewRecorder[S statemachine.State, C any](machine *statemachine.Machine[S, C]) *Recorder[S, C] {
	r := &Recorder[S, C]{initial: machine.CurrentState()}

	r.unsubscribe = machine.OnStateChanged(func(event statemachine.TransitionEvent[S, C]) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.trace = append(r.trace, TraceEntry[S]{
			Timestamp: event.Timestamp,
			From:      event.From,
			To:        event.To,
			Duration:  event.Duration,
		})
	})

	return r
}

// Trace returns the recorded transitions in order.
func (r *Recorder[S, C]) Trace() []TraceEntry[S] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.trace)
}

// Path returns the state at subscription time followed by every state entered.
func (r *Recorder[S, C]) Path() []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := []S{r.initial}
	for _, entry := range r.trace {
		path = append(path, entry.To)
	}

	return path
}

// Stop unsubscribes the recorder. The recorded trace is kept.
func (r *Recorder[S, C]) Stop() {
	r.unsubscribe()
}

// HookSpan is one recorded hook execution.
type HookSpan struct {
	Name  string
	Start time.Time
	End   time.Time
	Err   error
}

// Overlaps reports whether two spans were running at the same time.
func (s HookSpan) Overlaps(other HookSpan) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// HookTracker records when hooks start and end so tests can check that
// hooks of different transitions never interleave.
type HookTracker struct {
	mu            sync.Mutex
	spans         []HookSpan
	inFlight      int
	maxConcurrent int
}

// NewHookTracker creates an empty tracker.
func NewHookTracker() *HookTracker {
	return &HookTracker{}
}

// Track wraps a hook so that each call is recorded under name.
func Track[C any](tracker *HookTracker, name string, hook statemachine.Hook[C]) statemachine.Hook[C] {
	return func(ctx context.Context, smCtx C) error {
		start := tracker.begin()

		var err error
		if hook != nil {
			err = hook(ctx, smCtx)
		}

		tracker.end(name, start, err)

		return err
	}
}

func (h *HookTracker) begin() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.inFlight++
	h.maxConcurrent = max(h.maxConcurrent, h.inFlight)

	return time.Now()
}

func (h *HookTracker) end(name string, start time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.inFlight--
	h.spans = append(h.spans, HookSpan{Name: name, Start: start, End: time.Now(), Err: err})
}

// Spans returns the completed hook executions in completion order.
func (h *HookTracker) Spans() []HookSpan {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.spans)
}

// MaxConcurrent returns the largest number of hooks that ran at once.
func (h *HookTracker) MaxConcurrent() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.maxConcurrent
}

// Calls returns how many times the named hook completed.
func (h *HookTracker) Calls(name string) int {
	count := 0

	for _, span := range h.Spans() {
		if span.Name == name {
			count++
		}
	}

	return count
}

// Observation is what matchers inspect.
type Observation[S statemachine.State] struct {
	Path    []S
	Trace   []TraceEntry[S]
	Current S
	Hooks   []HookSpan
}

// Assertion represents a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// TestMachine wraps Machine with a recorder and assertion helpers.
type TestMachine[S statemachine.State, C any] struct {
	*statemachine.Machine[S, C]

	t          *testing.T
	recorder   *Recorder[S, C]
	tracker    *HookTracker
	results    []statemachine.TransitionResult[S]
	assertions []Assertion
}

// NewTestMachine starts recording the machine's transitions. The tracker is
// optional and only used for hook-level assertions.
func NewTestMachine[S statemachine.State, C any](
	t *testing.T, machine *statemachine.Machine[S, C], tracker *HookTracker,
) *TestMachine[S, C] {
	t.Helper()

	require.NotNil(t, machine, "machine is required")

	tm := &TestMachine[S, C]{
		Machine:  machine,
		t:        t,
		recorder: NewRecorder(machine),
		tracker:  tracker,
	}

	t.Cleanup(tm.recorder.Stop)

	return tm
}

// Transition requests a transition and records the result.
func (tm *TestMachine[S, C]) Transition(ctx context.Context, target S) statemachine.TransitionResult[S] {
	tm.t.Helper()

	result := tm.TransitionTo(ctx, target)
	tm.results = append(tm.results, result)

	return result
}

// MustTransition requests a transition and fails the test unless it succeeds.
func (tm *TestMachine[S, C]) MustTransition(ctx context.Context, target S) statemachine.TransitionResult[S] {
	tm.t.Helper()

	result := tm.Transition(ctx, target)
	require.True(tm.t, result.Success, "transition to '%s' should succeed: %s", target, result.Error)

	return result
}

// Observation snapshots what the machine has done so far.
func (tm *TestMachine[S, C]) Observation() Observation[S] {
	obs := Observation[S]{
		Path:    tm.recorder.Path(),
		Trace:   tm.recorder.Trace(),
		Current: tm.CurrentState(),
	}

	if tm.tracker != nil {
		obs.Hooks = tm.tracker.Spans()
	}

	return obs
}

func (tm *TestMachine[S, C]) check(matcher Matcher[S]) {
	tm.t.Helper()

	passed, err := matcher.Match(tm.Observation())

	tm.assertions = append(tm.assertions, Assertion{
		Name:   matcher.Description(),
		Passed: passed,
		Error:  err,
	})

	require.True(tm.t, passed, "%s: %v", matcher.Description(), err)
}

// AssertStateEntered checks that the machine entered a state.
func (tm *TestMachine[S, C]) AssertStateEntered(state S) {
	tm.t.Helper()
	tm.check(StateWasEntered(state))
}

// AssertTransitionTaken checks that a specific transition succeeded.
func (tm *TestMachine[S, C]) AssertTransitionTaken(from, to S) {
	tm.t.Helper()
	tm.check(TransitionWasTaken(from, to))
}

// AssertFinalState checks the current state.
func (tm *TestMachine[S, C]) AssertFinalState(expected S) {
	tm.t.Helper()
	tm.check(FinalState(expected))
}

// AssertNoOverlap checks that no two tracked hooks ran concurrently.
func (tm *TestMachine[S, C]) AssertNoOverlap() {
	tm.t.Helper()
	require.NotNil(tm.t, tm.tracker, "AssertNoOverlap needs a HookTracker")
	tm.check(NoOverlap[S]())
}

// AssertLastRejected checks that the most recent transition failed with err.
func (tm *TestMachine[S, C]) AssertLastRejected(err error) {
	tm.t.Helper()

	require.NotEmpty(tm.t, tm.results, "no transition was requested")

	last := tm.results[len(tm.results)-1]

	tm.assertions = append(tm.assertions, Assertion{
		Name:   fmt.Sprintf("last transition failed with %v", err),
		Passed: !last.Success && last.Err != nil,
		Error:  last.Err,
	})

	require.False(tm.t, last.Success, "last transition should have failed")
	require.ErrorIs(tm.t, last.Err, err)
}

// Results returns every result recorded by Transition and MustTransition.
func (tm *TestMachine[S, C]) Results() []statemachine.TransitionResult[S] {
	return slices.Clone(tm.results)
}

// Assertions returns all assertions made.
func (tm *TestMachine[S, C]) Assertions() []Assertion {
	return slices.Clone(tm.assertions)
}
