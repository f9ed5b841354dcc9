package statemachine

import "context"

// StateConfig holds the behavior attached to one state: an optional enter
// hook, an optional exit hook, an optional guard and a display name. Each
// setter replaces a single field and leaves the others alone, so a state can
// be configured over several calls. There is exactly one guard and one pair
// of hooks per state; setting one again replaces it.
type StateConfig[S State, C any] struct {
	state       S
	onEnter     Hook[C]
	onExit      Hook[C]
	guard       Guard[S, C]
	displayName string
}

func newStateConfig[S State, C any](state S) *StateConfig[S, C] {
	return &StateConfig[S, C]{
		state:       state,
		displayName: state.String(),
	}
}

// State returns the state this configuration belongs to.
func (c *StateConfig[S, C]) State() S {
	return c.state
}

// DisplayName returns the label used in diagnostics.
func (c *StateConfig[S, C]) DisplayName() string {
	return c.displayName
}

// OnEnter sets the hook that runs after the machine has moved into this state.
func (c *StateConfig[S, C]) OnEnter(hook Hook[C]) *StateConfig[S, C] {
	c.onEnter = hook

	return c
}

// OnEnterFunc is OnEnter for hooks that neither block nor fail.
func (c *StateConfig[S, C]) OnEnterFunc(fn func(smCtx C)) *StateConfig[S, C] {
	if fn == nil {
		c.onEnter = nil

		return c
	}

	c.onEnter = func(_ context.Context, smCtx C) error {
		fn(smCtx)

		return nil
	}

	return c
}

// OnExit sets the hook that runs before the machine leaves this state.
func (c *StateConfig[S, C]) OnExit(hook Hook[C]) *StateConfig[S, C] {
	c.onExit = hook

	return c
}

// OnExitFunc is OnExit for hooks that neither block nor fail.
func (c *StateConfig[S, C]) OnExitFunc(fn func(smCtx C)) *StateConfig[S, C] {
	if fn == nil {
		c.onExit = nil

		return c
	}

	c.onExit = func(_ context.Context, smCtx C) error {
		fn(smCtx)

		return nil
	}

	return c
}

// Guard sets the predicate consulted before leaving this state. It is only
// evaluated for targets the graph already allows.
//
// Guards may run without the machine's transition slot (CanTransitionTo
// does not take it), so they should only read the context.
func (c *StateConfig[S, C]) Guard(guard Guard[S, C]) *StateConfig[S, C] {
	c.guard = guard

	return c
}

// GuardFunc is Guard for predicates that cannot fail.
func (c *StateConfig[S, C]) GuardFunc(fn func(target S, smCtx C) bool) *StateConfig[S, C] {
	if fn == nil {
		c.guard = nil

		return c
	}

	c.guard = func(_ context.Context, target S, smCtx C) (bool, error) {
		return fn(target, smCtx), nil
	}

	return c
}

// WithDisplayName sets the diagnostic label. An empty name restores the
// default, which is the state's String value.
func (c *StateConfig[S, C]) WithDisplayName(name string) *StateConfig[S, C] {
	if name == "" {
		name = c.state.String()
	}

	c.displayName = name

	return c
}

func (c *StateConfig[S, C]) HasEnterHook() bool { return c.onEnter != nil }
func (c *StateConfig[S, C]) HasExitHook() bool  { return c.onExit != nil }
func (c *StateConfig[S, C]) HasGuard() bool     { return c.guard != nil }
