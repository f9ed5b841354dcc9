package statemachine

// Description is a read-only snapshot of a machine's configuration, with
// states rendered as strings. The visualizer and validator packages work on
// descriptions so they do not need to know the state type.
type Description struct {
	Name         string
	CurrentState string
	States       []StateDescription
	Transitions  []TransitionDescription
}

// StateDescription describes one configured state.
type StateDescription struct {
	Name         string
	DisplayName  string
	HasEnterHook bool
	HasExitHook  bool
	HasGuard     bool
}

// TransitionDescription describes one declared edge.
type TransitionDescription struct {
	From string
	To   string
}

// Describe snapshots the machine's states, hooks, guards and edges. Like
// Configure, it must not race with configuration changes.
func (m *Machine[S, C]) Describe() Description {
	desc := Description{
		Name:         m.opts.name,
		CurrentState: m.CurrentState().String(),
		States:       make([]StateDescription, 0, len(m.states)),
	}

	for _, state := range m.states {
		cfg := m.configs[state]

		desc.States = append(desc.States, StateDescription{
			Name:         state.String(),
			DisplayName:  cfg.DisplayName(),
			HasEnterHook: cfg.HasEnterHook(),
			HasExitHook:  cfg.HasExitHook(),
			HasGuard:     cfg.HasGuard(),
		})
	}

	for _, edge := range m.graph.Edges() {
		desc.Transitions = append(desc.Transitions, TransitionDescription{
			From: edge.From.String(),
			To:   edge.To.String(),
		})
	}

	return desc
}

// State returns the description of the named state.
func (d Description) State(name string) (StateDescription, bool) {
	for _, state := range d.States {
		if state.Name == name {
			return state, true
		}
	}

	return StateDescription{}, false
}

// Targets returns the declared targets of the named state.
func (d Description) Targets(from string) []string {
	var targets []string

	for _, transition := range d.Transitions {
		if transition.From == from {
			targets = append(targets, transition.To)
		}
	}

	return targets
}
