//nolint:lll // Long validation messages
package validator

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Rule codes.
const (
	CodeUnknownState      = "UNKNOWN_STATE"
	CodeUnreachableState  = "UNREACHABLE_STATE"
	CodeDeadEndState      = "DEAD_END_STATE"
	CodeSelfTransition    = "SELF_TRANSITION"
	CodeGuardWithoutEdges = "GUARD_WITHOUT_EDGES"
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a description for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(desc statemachine.Description) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unknownStateRule{},
		&unreachableStateRule{},
		&deadEndStateRule{},
		&selfTransitionRule{},
		&guardWithoutEdgesRule{},
	}
}

// RegisteredRules stores custom validation rules.
var RegisteredRules []Rule //nolint:gochecknoglobals

// RegisterRule adds a custom validation rule. Registered rules run after
// the default rules in Validate and ValidateStrict.
func RegisterRule(rule Rule) {
	RegisteredRules = append(RegisteredRules, rule)
}

// AllRules returns the default rules followed by the registered ones.
func AllRules() []Rule {
	rules := DefaultRules()

	return append(rules, RegisteredRules...)
}

func knownStates(desc statemachine.Description) map[string]bool {
	known := make(map[string]bool, len(desc.States))
	for _, state := range desc.States {
		known[state.Name] = true
	}

	return known
}

// unknownStateRule checks for edges whose endpoints are not declared states.
type unknownStateRule struct{}

func (r *unknownStateRule) Name() string {
	return "UnknownState"
}

func (r *unknownStateRule) Severity() Severity {
	return SeverityError
}

func (r *unknownStateRule) Check(desc statemachine.Description) RuleResult {
	var errors []ValidationError

	known := knownStates(desc)
	reported := make(map[string]bool)

	report := func(name string, transition statemachine.TransitionDescription) {
		if known[name] || reported[name] {
			return
		}

		reported[name] = true

		errors = append(errors, ValidationError{
			Code:     CodeUnknownState,
			Message:  fmt.Sprintf("Transition '%s' -> '%s' refers to undeclared state '%s'", transition.From, transition.To, name),
			Location: Location{State: name},
		})
	}

	for _, transition := range desc.Transitions {
		report(transition.From, transition)
		report(transition.To, transition)
	}

	return RuleResult{Errors: errors}
}

// unreachableStateRule checks for states that cannot be reached from the current state.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(desc statemachine.Description) RuleResult {
	var errors []ValidationError

	// Find all reachable states using BFS
	reachable := make(map[string]bool)
	reachable[desc.CurrentState] = true

	queue := []string{desc.CurrentState}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range desc.Transitions {
			if transition.From == current && !reachable[transition.To] {
				reachable[transition.To] = true
				queue = append(queue, transition.To)
			}
		}
	}

	for _, state := range desc.States {
		if !reachable[state.Name] {
			errors = append(errors, ValidationError{
				Code:     CodeUnreachableState,
				Message:  fmt.Sprintf("State '%s' cannot be reached from state '%s'", state.Name, desc.CurrentState),
				Location: Location{State: state.Name},
				Fix:      RemoveUnreachableState(state.Name),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// deadEndStateRule warns about states with no outgoing edges. These are
// often intended terminal states, so this is only a warning.
type deadEndStateRule struct{}

func (r *deadEndStateRule) Name() string {
	return "DeadEndState"
}

func (r *deadEndStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *deadEndStateRule) Check(desc statemachine.Description) RuleResult {
	var warnings []ValidationWarning

	hasOutgoing := make(map[string]bool)

	for _, transition := range desc.Transitions {
		if transition.From != transition.To {
			hasOutgoing[transition.From] = true
		}
	}

	for _, state := range desc.States {
		if !hasOutgoing[state.Name] {
			warnings = append(warnings, ValidationWarning{
				Code:     CodeDeadEndState,
				Message:  fmt.Sprintf("State '%s' has no outgoing transitions", state.Name),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// selfTransitionRule warns about edges from a state to itself. The machine
// treats a request for the current state as a no-op without consulting the
// graph, so such edges never take effect.
type selfTransitionRule struct{}

func (r *selfTransitionRule) Name() string {
	return "SelfTransition"
}

func (r *selfTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *selfTransitionRule) Check(desc statemachine.Description) RuleResult {
	var warnings []ValidationWarning

	for _, transition := range desc.Transitions {
		if transition.From == transition.To {
			warnings = append(warnings, ValidationWarning{
				Code:     CodeSelfTransition,
				Message:  fmt.Sprintf("Transition '%s' -> '%s' is never consulted; self-transitions are always no-ops", transition.From, transition.To),
				Location: Location{State: transition.From},
				Fix:      RemoveTransition(transition.From, transition.To),
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// guardWithoutEdgesRule warns about guards that can never run.
type guardWithoutEdgesRule struct{}

func (r *guardWithoutEdgesRule) Name() string {
	return "GuardWithoutEdges"
}

func (r *guardWithoutEdgesRule) Severity() Severity {
	return SeverityWarning
}

func (r *guardWithoutEdgesRule) Check(desc statemachine.Description) RuleResult {
	var warnings []ValidationWarning

	for _, state := range desc.States {
		if !state.HasGuard {
			continue
		}

		if len(desc.Targets(state.Name)) == 0 {
			warnings = append(warnings, ValidationWarning{
				Code:     CodeGuardWithoutEdges,
				Message:  fmt.Sprintf("State '%s' has a guard but no outgoing transitions", state.Name),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}
