// Package visualizer generates Mermaid state diagrams from machine
// descriptions and YAML definitions.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Visualizer errors.
var (
	ErrDefinitionNil  = errors.New("definition cannot be nil")
	ErrNoStates       = errors.New("description has no states")
	ErrNoInitialState = errors.New("description must have a current state")
	ErrUnknownTheme   = errors.New("unknown theme")
)

type palette struct {
	hooked      string
	terminal    string
	highlighted string
	current     string
}

var themes = map[string]palette{ //nolint:gochecknoglobals
	"default": {
		hooked:      "fill:#e1f5ff,stroke:#01579b,stroke-width:2px",
		terminal:    "fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px",
		highlighted: "fill:#fff9c4,stroke:#f57f17,stroke-width:3px",
		current:     "fill:#ffe0b2,stroke:#e65100,stroke-width:3px",
	},
	"dark": {
		hooked:      "fill:#263238,stroke:#80cbc4,color:#eceff1,stroke-width:2px",
		terminal:    "fill:#1b5e20,stroke:#a5d6a7,color:#eceff1,stroke-width:2px",
		highlighted: "fill:#4e342e,stroke:#ffcc80,color:#eceff1,stroke-width:3px",
		current:     "fill:#311b92,stroke:#b39ddb,color:#eceff1,stroke-width:3px",
	},
	"forest": {
		hooked:      "fill:#dcedc8,stroke:#33691e,stroke-width:2px",
		terminal:    "fill:#a5d6a7,stroke:#1b5e20,stroke-width:2px",
		highlighted: "fill:#fff59d,stroke:#827717,stroke-width:3px",
		current:     "fill:#ffcc80,stroke:#bf360c,stroke-width:3px",
	},
}

// GenerateMermaid converts a machine description to a Mermaid state diagram.
func GenerateMermaid(desc statemachine.Description) (string, error) {
	return GenerateMermaidWithOptions(desc, DefaultOptions())
}

// GenerateMermaidFromDefinition renders a definition with default options.
// The first declared state is drawn as the initial state.
func GenerateMermaidFromDefinition(def *statemachine.Definition) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	return GenerateMermaid(def.Describe())
}

// GenerateMermaidFromFile loads a definition from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaidFromDefinition(def)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
//
// States without outgoing edges are drawn as terminal. Edges from a state to
// itself are omitted because the machine never consults them.
func GenerateMermaidWithOptions(desc statemachine.Description, opts Options) (string, error) {
	if len(desc.States) == 0 {
		return "", ErrNoStates
	}

	if desc.CurrentState == "" {
		return "", ErrNoInitialState
	}

	theme := opts.Theme
	if theme == "" {
		theme = "default"
	}

	colors, ok := themes[theme]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTheme, opts.Theme)
	}

	var sb strings.Builder

	// Header
	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction(opts.Direction))

	// Initial state marker
	fmt.Fprintf(&sb, "    [*] --> %s\n", nodeID(desc.CurrentState))

	highlightMap := make(map[string]bool)
	for _, state := range opts.HighlightPath {
		highlightMap[state] = true
	}

	targets := make(map[string][]string)

	for _, transition := range desc.Transitions {
		if transition.From == transition.To {
			continue
		}

		targets[transition.From] = append(targets[transition.From], transition.To)
	}

	for _, state := range desc.States {
		id := nodeID(state.Name)

		if label := stateLabel(state, opts.ShowHooks); label != id {
			fmt.Fprintf(&sb, "    %s: %s\n", id, label)
		}

		isTerminal := len(targets[state.Name]) == 0
		hasHooks := state.HasEnterHook || state.HasExitHook || state.HasGuard

		switch {
		case highlightMap[state.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case opts.MarkCurrent && state.Name == desc.CurrentState:
			fmt.Fprintf(&sb, "    class %s current\n", id)
		case isTerminal:
			fmt.Fprintf(&sb, "    class %s terminal\n", id)
		case hasHooks:
			fmt.Fprintf(&sb, "    class %s hooked\n", id)
		}

		for _, to := range targets[state.Name] {
			label := ""
			if opts.ShowGuards && state.HasGuard {
				label = ": guarded"
			}

			fmt.Fprintf(&sb, "    %s --> %s%s\n", id, nodeID(to), label)
		}

		if isTerminal {
			fmt.Fprintf(&sb, "    %s --> [*]\n", id)
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    classDef hooked %s\n", colors.hooked)
	fmt.Fprintf(&sb, "    classDef terminal %s\n", colors.terminal)
	fmt.Fprintf(&sb, "    classDef highlighted %s\n", colors.highlighted)
	fmt.Fprintf(&sb, "    classDef current %s\n", colors.current)

	sb.WriteString("```\n")

	return sb.String(), nil
}

// stateLabel builds the text shown inside a state node.
func stateLabel(state statemachine.StateDescription, showHooks bool) string {
	label := state.DisplayName
	if label == "" {
		label = state.Name
	}

	if !showHooks {
		return label
	}

	var markers []string

	if state.HasEnterHook {
		markers = append(markers, "enter")
	}

	if state.HasExitHook {
		markers = append(markers, "exit")
	}

	if state.HasGuard {
		markers = append(markers, "guard")
	}

	if len(markers) == 0 {
		return label
	}

	return fmt.Sprintf("%s\\n[%s]", label, strings.Join(markers, ", "))
}

func direction(d string) string {
	switch strings.ToUpper(d) {
	case "LR":
		return "LR"
	case "RL":
		return "RL"
	case "BT":
		return "BT"
	default:
		return "TB"
	}
}

// nodeID turns a state name into a Mermaid identifier.
func nodeID(name string) string {
	var sb strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	return sb.String()
}
