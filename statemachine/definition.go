package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionLoader is an interface for loading definitions by name.
// Applications can implement this to provide embedded or custom loading.
type DefinitionLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	// defaultDefinitionLoader is the global loader used by LoadDefinition.
	defaultDefinitionLoader DefinitionLoader //nolint:gochecknoglobals
)

// SetDefinitionLoader sets the default loader for name-based loading.
func SetDefinitionLoader(loader DefinitionLoader) {
	defaultDefinitionLoader = loader
}

// Definition declares the structural part of a machine: its states, their
// display names and the allowed edges. Hooks and guards are code and are
// attached with Configure.
type Definition struct {
	Name        string                 `json:"name"        yaml:"name"`
	States      []StateDefinition      `json:"states"      yaml:"states"`
	Transitions []TransitionDefinition `json:"transitions" yaml:"transitions"`
}

// StateDefinition declares a state.
type StateDefinition struct {
	Name        string         `json:"name"                  yaml:"name"`
	DisplayName string         `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
}

// TransitionDefinition declares the edges from one state.
type TransitionDefinition struct {
	From string   `json:"from" yaml:"from"`
	To   []string `json:"to"   yaml:"to"`
}

// LoadDefinition loads a definition by path or name.
// Supports two modes:
//   - Path mode: a value containing '/', '\', or ending in '.yaml'/'.yml' is read from the filesystem
//     Example: LoadDefinition("testdata/orders.yaml")
//   - Name mode: a bare name is loaded through the registered DefinitionLoader
//     Example: LoadDefinition("orders")
func LoadDefinition(pathOrName string) (*Definition, error) {
	lower := strings.ToLower(pathOrName)
	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read definition file %q: %w", pathOrName, err)
		}

		return LoadDefinitionFromBytes(data)
	}

	if defaultDefinitionLoader == nil {
		return nil, ErrNoDefinitionLoader
	}

	data, err := defaultDefinitionLoader.LoadByName(pathOrName)
	if err != nil {
		available := defaultDefinitionLoader.ListAvailable()

		return nil, fmt.Errorf("failed to load definition %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses and validates a YAML definition.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var def Definition

	err := yaml.Unmarshal(data, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = def.Validate()
	if err != nil {
		return nil, err
	}

	return &def, nil
}

// LoadDefinitionFromFS loads a definition from a filesystem such as embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// Validate checks that the definition is self-consistent.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return ErrDefinitionNameRequired
	}

	if len(d.States) == 0 {
		return ErrStateRequired
	}

	names := make(map[string]bool, len(d.States))

	for _, state := range d.States {
		if state.Name == "" {
			return ErrStateNameRequired
		}

		if names[state.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state.Name)
		}

		names[state.Name] = true
	}

	for i, transition := range d.Transitions {
		if transition.From == "" {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionFromRequired)
		}

		if len(transition.To) == 0 {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionToRequired)
		}

		if !names[transition.From] {
			return fmt.Errorf("transition %d: %w: %s", i, ErrUnknownStateName, transition.From)
		}

		for _, to := range transition.To {
			if !names[to] {
				return fmt.Errorf("transition %d: %w: %s", i, ErrUnknownStateName, to)
			}
		}
	}

	return nil
}

// Marshal renders the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition: %w", err)
	}

	return data, nil
}

// ApplyDefinition declares the definition's display names and edges on the
// machine. States are matched by their String value; every name in the
// definition must match a state the machine was created with.
func ApplyDefinition[S State, C any](machine *Machine[S, C], def *Definition) error {
	err := def.Validate()
	if err != nil {
		return err
	}

	byName := make(map[string]S, len(machine.states))
	for _, state := range machine.states {
		byName[state.String()] = state
	}

	lookup := func(name string) (S, error) {
		state, ok := byName[name]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrUnknownStateName, name)
		}

		return state, nil
	}

	// Resolve everything first so a bad definition leaves the machine untouched.
	displayNames := make(map[S]string)

	for _, stateDef := range def.States {
		state, err := lookup(stateDef.Name)
		if err != nil {
			return err
		}

		if stateDef.DisplayName != "" {
			displayNames[state] = stateDef.DisplayName
		}
	}

	var edges []Edge[S]

	for _, transition := range def.Transitions {
		from, err := lookup(transition.From)
		if err != nil {
			return err
		}

		for _, name := range transition.To {
			to, err := lookup(name)
			if err != nil {
				return err
			}

			edges = append(edges, Edge[S]{From: from, To: to})
		}
	}

	for state, name := range displayNames {
		machine.Configure(state, func(cfg *StateConfig[S, C]) {
			cfg.WithDisplayName(name)
		})
	}

	for _, edge := range edges {
		machine.AllowTransition(edge.From, edge.To)
	}

	return nil
}

// DefinitionOf builds a definition from a machine's current configuration.
func DefinitionOf(desc Description) *Definition {
	def := &Definition{
		Name:   desc.Name,
		States: make([]StateDefinition, 0, len(desc.States)),
	}

	for _, state := range desc.States {
		stateDef := StateDefinition{Name: state.Name}
		if state.DisplayName != state.Name {
			stateDef.DisplayName = state.DisplayName
		}

		def.States = append(def.States, stateDef)

		if targets := desc.Targets(state.Name); len(targets) > 0 {
			def.Transitions = append(def.Transitions, TransitionDefinition{From: state.Name, To: targets})
		}
	}

	return def
}

// Describe renders the definition as a Description with the first state as
// the current one. Definitions carry no hooks or guards.
func (d *Definition) Describe() Description {
	desc := Description{
		Name:   d.Name,
		States: make([]StateDescription, 0, len(d.States)),
	}

	if len(d.States) > 0 {
		desc.CurrentState = d.States[0].Name
	}

	for _, state := range d.States {
		displayName := state.DisplayName
		if displayName == "" {
			displayName = state.Name
		}

		desc.States = append(desc.States, StateDescription{Name: state.Name, DisplayName: displayName})
	}

	for _, transition := range d.Transitions {
		for _, to := range transition.To {
			desc.Transitions = append(desc.Transitions, TransitionDescription{From: transition.From, To: to})
		}
	}

	return desc
}
