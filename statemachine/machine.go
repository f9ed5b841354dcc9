package statemachine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Machine enforces a declared transition graph over a state type S and runs
// per-state hooks against a caller-owned context value of type C.
//
// A machine is used in two phases. First it is configured (Configure,
// AllowTransition, AllowTransitions) by a single goroutine. Then it is run
// (TransitionTo, CanTransitionTo, CurrentState), possibly from many
// goroutines. Configuring a machine while a transition is in flight is not
// supported.
//
// At most one transition, including its hooks and observers, executes at a
// time. C should be a pointer (or another reference type) so that hooks
// share one context value.
type Machine[S State, C any] struct {
	opts    options
	states  []S
	configs map[S]*StateConfig[S, C]
	graph   *Graph[S]
	smCtx   C
	current *atomic.Pointer[S]

	// slot is the exclusive execution slot. Holding its single permit
	// grants the right to run hooks and change the current state.
	slot *semaphore.Weighted

	observerMu     sync.RWMutex
	observers      []observerEntry[S, C]
	nextObserverID uint64
}

type observerEntry[S State, C any] struct {
	id       uint64
	observer Observer[S, C]
}

// New creates a machine in the initial state. states enumerates every
// member of S in declaration order; each gets a default configuration with
// no hooks, no guard and its String value as display name.
func New[S State, C any](states []S, initial S, smCtx C, opts ...Option) (*Machine[S, C], error) {
	if isNil(smCtx) {
		return nil, ErrNilContext
	}

	if len(states) == 0 {
		return nil, ErrNoStates
	}

	if !slices.Contains(states, initial) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInitialState, initial)
	}

	settings := defaultOptions()
	for _, opt := range opts {
		opt(&settings)
	}

	machine := &Machine[S, C]{
		opts:    settings,
		configs: make(map[S]*StateConfig[S, C], len(states)),
		graph:   NewGraph[S](),
		smCtx:   smCtx,
		current: atomic.NewPointer(&initial),
		slot:    semaphore.NewWeighted(1),
	}

	for _, state := range states {
		if _, seen := machine.configs[state]; seen {
			continue
		}

		machine.configs[state] = newStateConfig[S, C](state)
		machine.states = append(machine.states, state)
	}

	return machine, nil
}

// Name returns the name given with WithName.
func (m *Machine[S, C]) Name() string {
	return m.opts.name
}

// Context returns the context value shared with hooks.
func (m *Machine[S, C]) Context() C {
	return m.smCtx
}

// States returns every configured state in declaration order.
func (m *Machine[S, C]) States() []S {
	return slices.Clone(m.states)
}

// CurrentState returns the current state without blocking. The value may be
// about to change if a transition is in flight.
func (m *Machine[S, C]) CurrentState() S {
	return *m.current.Load()
}

// DisplayName returns the diagnostic label of a state.
func (m *Machine[S, C]) DisplayName(state S) string {
	if cfg, ok := m.configs[state]; ok {
		return cfg.DisplayName()
	}

	return state.String()
}

// Configure applies configure to the configuration of state, creating it if
// the state was not part of the enumeration. A nil configure only ensures
// the configuration exists.
func (m *Machine[S, C]) Configure(state S, configure func(cfg *StateConfig[S, C])) *Machine[S, C] {
	cfg, ok := m.configs[state]
	if !ok {
		cfg = newStateConfig[S, C](state)
		m.configs[state] = cfg
		m.states = append(m.states, state)
	}

	if configure != nil {
		configure(cfg)
	}

	return m
}

// AllowTransition declares the edge from -> to.
func (m *Machine[S, C]) AllowTransition(from, to S) *Machine[S, C] {
	m.graph.Allow(from, to)

	return m
}

// AllowTransitions declares an edge from the source to each target.
func (m *Machine[S, C]) AllowTransitions(from S, to ...S) *Machine[S, C] {
	m.graph.AllowMany(from, to...)

	return m
}

// AllowedTransitions returns the declared targets of from. Guards are not
// consulted.
func (m *Machine[S, C]) AllowedTransitions(from S) []S {
	return m.graph.Targets(from)
}

// CanTransitionTo reports whether a transition to target would currently
// be accepted. It does not take the transition slot, so the answer can be
// stale by the time TransitionTo runs; TransitionTo checks again.
func (m *Machine[S, C]) CanTransitionTo(ctx context.Context, target S) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	current := m.CurrentState()
	if current == target {
		return true
	}

	err := m.eligibility(ctx, current, target)
	if err != nil {
		if errors.Is(err, ErrGuardFailed) && m.opts.logger != nil {
			m.opts.logger.GuardFailed(ctx, m.opts.name, current.String(), target.String(), err)
		}

		return false
	}

	return true
}

// TransitionTo moves the machine to target.
//
// Requesting the current state succeeds immediately without running hooks
// or notifying observers. Otherwise the call waits for exclusive access to
// the machine (honoring ctx), checks the graph and the current state's
// guard, runs the exit hook of the current state, switches state, runs the
// enter hook of the target, and notifies observers. If a hook fails the
// state is rolled back and no observer is notified.
//
// A request made with a context handed out by an in-flight transition of
// the same machine fails with ErrReentrantTransition.
//
// Failures are reported through the result, never by panicking.
func (m *Machine[S, C]) TransitionTo(ctx context.Context, target S) TransitionResult[S] {
	if ctx == nil {
		ctx = context.Background()
	}

	requested := m.CurrentState()
	if requested == target {
		return succeeded(requested, requested, 0)
	}

	span := noopSpan()
	if m.opts.tracing {
		ctx, span = startTransitionSpan(ctx, m.opts.name, requested.String(), target.String())
	}

	if m.opts.logger != nil {
		m.opts.logger.TransitionRequested(ctx, m.opts.name, requested.String(), target.String())
	}

	from, result := m.execute(ctx, requested, target)

	m.record(ctx, span, from, target, result)

	return result
}

// OnStateChanged registers an observer for successful transitions and
// returns a function that removes it.
//
// Observers run on the transitioning goroutine while it still holds the
// machine, so they must not call TransitionTo synchronously. A synchronous
// call made with event.Ctx fails fast with ErrReentrantTransition; one made
// with an unrelated context blocks forever. To chain a transition, start it
// from another goroutine; it will see the new state.
func (m *Machine[S, C]) OnStateChanged(observer Observer[S, C]) (unsubscribe func()) {
	if observer == nil {
		return func() {}
	}

	m.observerMu.Lock()
	m.nextObserverID++
	id := m.nextObserverID
	m.observers = append(m.observers, observerEntry[S, C]{id: id, observer: observer})
	m.observerMu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			m.observerMu.Lock()
			defer m.observerMu.Unlock()

			m.observers = slices.DeleteFunc(m.observers, func(entry observerEntry[S, C]) bool {
				return entry.id == id
			})
		})
	}
}

// execute runs steps that require the slot. It returns the state the
// attempt started from, which may differ from requested if another
// transition completed while this one waited.
func (m *Machine[S, C]) execute(ctx context.Context, requested, target S) (S, TransitionResult[S]) {
	if holdsSlot(ctx, m) {
		return requested, failed(m.CurrentState(),
			WrapTransitionError(requested, target, ErrReentrantTransition), false, 0)
	}

	waitStart := time.Now()
	err := m.slot.Acquire(ctx, 1)

	if m.opts.metrics {
		slotWait.WithLabelValues(sanitizeMachine(m.opts.name)).Observe(time.Since(waitStart).Seconds())
	}

	if err != nil {
		return requested, failed(m.CurrentState(), WrapTransitionError(requested, target, err), true, 0)
	}

	defer m.slot.Release(1)

	ctx = withSlotHolder(ctx, m)

	from := m.CurrentState()
	if from == target {
		return from, succeeded(from, from, 0)
	}

	err = m.eligibility(ctx, from, target)
	if err != nil {
		if errors.Is(err, ErrGuardFailed) && m.opts.logger != nil {
			m.opts.logger.GuardFailed(ctx, m.opts.name, from.String(), target.String(), err)
		}

		return from, failed(from, WrapTransitionError(from, target, err), isCancellation(ctx, err), 0)
	}

	start := time.Now()
	err = m.runHooks(ctx, from, target)
	duration := time.Since(start)

	if err != nil {
		m.setCurrent(from)

		return from, failed(from, WrapTransitionError(from, target, err), isCancellation(ctx, err), duration)
	}

	m.emit(ctx, TransitionEvent[S, C]{
		Ctx:       ctx,
		From:      from,
		To:        target,
		Context:   m.smCtx,
		Timestamp: time.Now().UTC(),
		Duration:  duration,
	})

	return from, succeeded(from, target, duration)
}

// eligibility returns nil if the graph and the guard of from both permit
// moving to target.
func (m *Machine[S, C]) eligibility(ctx context.Context, from, target S) error {
	if !m.graph.Contains(from, target) {
		return ErrTransitionNotAllowed
	}

	cfg, ok := m.configs[from]
	if !ok || cfg.guard == nil {
		return nil
	}

	allowed, err := callGuard(ctx, cfg.guard, target, m.smCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGuardFailed, err)
	}

	if !allowed {
		return ErrGuardRejected
	}

	return nil
}

// runHooks runs the exit hook of from, moves to target and runs the enter
// hook of target. The caller rolls the state back on error.
func (m *Machine[S, C]) runHooks(ctx context.Context, from, target S) error {
	info := TransitionInfo{
		Machine: m.opts.name,
		From:    from.String(),
		To:      target.String(),
	}

	if cfg, ok := m.configs[from]; ok && cfg.onExit != nil {
		info.Phase = PhaseExit

		err := m.runHook(withTransition(ctx, info), from, PhaseExit, cfg.onExit)
		if err != nil {
			return err
		}
	}

	m.setCurrent(target)

	if cfg, ok := m.configs[target]; ok && cfg.onEnter != nil {
		info.Phase = PhaseEnter

		err := m.runHook(withTransition(ctx, info), target, PhaseEnter, cfg.onEnter)
		if err != nil {
			return err
		}
	}

	return nil
}

// runHook executes a single hook with timeout, tracing, metrics and logging.
func (m *Machine[S, C]) runHook(ctx context.Context, state S, phase HookPhase, hook Hook[C]) error {
	hookCtx := ctx

	if m.opts.hookTimeout > 0 {
		var cancel context.CancelFunc

		hookCtx, cancel = context.WithTimeout(ctx, m.opts.hookTimeout)
		defer cancel()
	}

	span := noopSpan()
	if m.opts.tracing {
		hookCtx, span = startHookSpan(hookCtx, m.opts.name, state.String(), phase)
	}

	start := time.Now()
	panicked, err := callHook(hookCtx, hook, m.smCtx)
	duration := time.Since(start)

	if err != nil {
		switch {
		case panicked:
			// already wrapped with ErrHookPanicked
		case m.opts.hookTimeout > 0 && ctx.Err() == nil && errors.Is(hookCtx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s: %w", ErrHookTimeout, m.opts.hookTimeout, err)
		default:
			err = fmt.Errorf("%w: %w", ErrHookFailed, err)
		}

		err = &HookError{State: state.String(), Phase: phase, Err: err}
	}

	endSpan(span, err, attribute.Int64("duration_ms", duration.Milliseconds()))

	if m.opts.metrics {
		hookDuration.WithLabelValues(
			sanitizeMachine(m.opts.name),
			state.String(),
			string(phase),
			hookOutcome(err),
		).Observe(duration.Seconds())
	}

	if m.opts.logger != nil {
		m.opts.logger.HookCompleted(hookCtx, m.opts.name, state.String(), phase, duration, err)
	}

	return err
}

// emit notifies observers. A panicking observer is reported to the logger,
// if any, and skipped.
func (m *Machine[S, C]) emit(ctx context.Context, event TransitionEvent[S, C]) {
	m.observerMu.RLock()
	observers := slices.Clone(m.observers)
	m.observerMu.RUnlock()

	for _, entry := range observers {
		m.notify(ctx, entry.observer, event)
	}
}

func (m *Machine[S, C]) notify(ctx context.Context, observer Observer[S, C], event TransitionEvent[S, C]) {
	defer func() {
		if r := recover(); r != nil && m.opts.logger != nil {
			m.opts.logger.ObserverPanicked(ctx, m.opts.name, event.From.String(), event.To.String(), r)
		}
	}()

	observer(event)
}

// record finishes the span and emits metrics and logs for an attempt.
func (m *Machine[S, C]) record(ctx context.Context, span trace.Span, from, target S, result TransitionResult[S]) {
	outcome := result.Outcome()

	if m.opts.metrics {
		name := sanitizeMachine(m.opts.name)

		transitionTotal.WithLabelValues(name, from.String(), target.String(), outcome).Inc()

		if result.Success || result.Duration > 0 {
			transitionDuration.WithLabelValues(name, outcome).Observe(result.Duration.Seconds())
		}
	}

	endSpan(span, result.Err,
		attribute.String("from_state", from.String()),
		attribute.String("outcome", outcome),
		attribute.Int64("duration_ms", result.Duration.Milliseconds()),
	)

	if m.opts.logger == nil {
		return
	}

	switch outcome {
	case outcomeSuccess:
		m.opts.logger.TransitionCompleted(ctx, m.opts.name, from.String(), target.String(), result.Duration)
	case outcomeRejected:
		m.opts.logger.TransitionRejected(ctx, m.opts.name, from.String(), target.String(), result.Err)
	default:
		m.opts.logger.TransitionFailed(ctx, m.opts.name, from.String(), target.String(), result.Duration, result.Err)
	}
}

func (m *Machine[S, C]) setCurrent(state S) {
	m.current.Store(&state)
}

// callHook runs a hook, converting a panic into an error.
func callHook[C any](ctx context.Context, hook Hook[C], smCtx C) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("%w: %v", ErrHookPanicked, r)
		}
	}()

	return false, hook(ctx, smCtx)
}

// callGuard runs a guard, converting a panic into an error.
func callGuard[S State, C any](ctx context.Context, guard Guard[S, C], target S, smCtx C) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			err = fmt.Errorf("guard panicked: %v", r) //nolint:err113
		}
	}()

	return guard(ctx, target, smCtx)
}

// isCancellation reports whether err was caused by ctx being done.
func isCancellation(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()

	return ctxErr != nil && errors.Is(err, ctxErr)
}

// isNil reports whether v is nil or a nil reference.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface,
		reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
