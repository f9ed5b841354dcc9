package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/statemachine"
)

var (
	// ErrTransitionExists is returned when attempting to add a transition that already exists.
	ErrTransitionExists = errors.New("transition already exists")
	// ErrTransitionNotFound is returned when attempting to remove a transition that doesn't exist.
	ErrTransitionNotFound = errors.New("transition not found")
	// ErrStateNotFound is returned when attempting to change a state that doesn't exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateAlreadyExists is returned when attempting to rename to an existing state name.
	ErrStateAlreadyExists = errors.New("state already exists")
)

// Fix represents an automatic fix for a validation issue. Fixes edit a
// definition; a live machine has to be rebuilt from the fixed definition.
type Fix struct {
	Description string
	Apply       func(def *statemachine.Definition) error
}

func hasState(def *statemachine.Definition, name string) bool {
	return slices.ContainsFunc(def.States, func(state statemachine.StateDefinition) bool {
		return state.Name == name
	})
}

// AddMissingTransition creates a fix that adds a transition between states.
func AddMissingTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Add transition from '%s' to '%s'", from, to),
		Apply: func(def *statemachine.Definition) error {
			for _, name := range []string{from, to} {
				if !hasState(def, name) {
					return fmt.Errorf("%w: '%s'", ErrStateNotFound, name)
				}
			}

			for i, transition := range def.Transitions {
				if transition.From != from {
					continue
				}

				if slices.Contains(transition.To, to) {
					return ErrTransitionExists
				}

				def.Transitions[i].To = append(def.Transitions[i].To, to)

				return nil
			}

			def.Transitions = append(def.Transitions, statemachine.TransitionDefinition{
				From: from,
				To:   []string{to},
			})

			return nil
		},
	}
}

// RemoveTransition creates a fix that removes a transition.
func RemoveTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove transition from '%s' to '%s'", from, to),
		Apply: func(def *statemachine.Definition) error {
			found := false
			newTransitions := make([]statemachine.TransitionDefinition, 0, len(def.Transitions))

			for _, transition := range def.Transitions {
				if transition.From == from && slices.Contains(transition.To, to) {
					found = true
					transition.To = slices.DeleteFunc(slices.Clone(transition.To), func(name string) bool {
						return name == to
					})
				}

				if len(transition.To) > 0 {
					newTransitions = append(newTransitions, transition)
				}
			}

			if !found {
				return ErrTransitionNotFound
			}

			def.Transitions = newTransitions

			return nil
		},
	}
}

// RemoveUnreachableState creates a fix that removes a state and every
// transition that mentions it.
func RemoveUnreachableState(stateName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", stateName),
		Apply: func(def *statemachine.Definition) error {
			if !hasState(def, stateName) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			def.States = slices.DeleteFunc(def.States, func(state statemachine.StateDefinition) bool {
				return state.Name == stateName
			})

			newTransitions := make([]statemachine.TransitionDefinition, 0, len(def.Transitions))

			for _, transition := range def.Transitions {
				if transition.From == stateName {
					continue
				}

				transition.To = slices.DeleteFunc(slices.Clone(transition.To), func(name string) bool {
					return name == stateName
				})

				if len(transition.To) > 0 {
					newTransitions = append(newTransitions, transition)
				}
			}

			def.Transitions = newTransitions

			return nil
		},
	}
}

// RenameState creates a fix that renames a state.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(def *statemachine.Definition) error {
			if hasState(def, newName) {
				return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
			}

			if !hasState(def, oldName) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			for i, state := range def.States {
				if state.Name == oldName {
					def.States[i].Name = newName
				}
			}

			for i, transition := range def.Transitions {
				if transition.From == oldName {
					def.Transitions[i].From = newName
				}

				for j, to := range transition.To {
					if to == oldName {
						def.Transitions[i].To[j] = newName
					}
				}
			}

			return nil
		},
	}
}

// ApplyFixes applies a list of fixes to a definition.
func ApplyFixes(def *statemachine.Definition, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			err := fix.Apply(def)
			if err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}

// Fixes collects the fixes attached to a result's errors and warnings.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, err := range r.Errors {
		if err.Fix != nil {
			fixes = append(fixes, err.Fix)
		}
	}

	for _, warn := range r.Warnings {
		if warn.Fix != nil {
			fixes = append(fixes, warn.Fix)
		}
	}

	return fixes
}
