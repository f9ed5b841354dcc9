// Package validator checks machine descriptions and definitions for
// structural problems and suggests fixes.
package validator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/statemachine"
)

// ValidationResult contains the results of validating a state machine.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with fix suggestions.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE", "UNKNOWN_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string   // Warning code
	Message  string   // Human-readable warning message
	Location Location // Where the warning occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // Example showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File  string // Definition file path, if any
	State string // State name if applicable
}

// Validate runs the default and registered rules against a description.
func Validate(desc statemachine.Description) ValidationResult {
	return ValidateWithRules(desc, AllRules())
}

// ValidateStrict is Validate with warnings promoted to errors.
func ValidateStrict(desc statemachine.Description) ValidationResult {
	return ValidateWithRulesStrict(desc, AllRules())
}

// ValidateDefinition validates a definition, starting reachability from its
// first state.
func ValidateDefinition(def *statemachine.Definition, strict bool) ValidationResult {
	if strict {
		return ValidateStrict(def.Describe())
	}

	return Validate(def.Describe())
}

// ValidateFile loads a definition from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a definition from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a definition from a file and validates it with options.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "DEFINITION_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load definition: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	result := ValidateDefinition(def, strict)

	// Set file location for all errors and warnings
	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules. Issues are ordered by
// state name in natural order, then by code.
func ValidateWithRules(desc statemachine.Description, rules []Rule) ValidationResult {
	var result ValidationResult

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(desc)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	slices.SortStableFunc(result.Errors, func(a, b ValidationError) int {
		return compareIssues(a.Location, a.Code, b.Location, b.Code)
	})

	slices.SortStableFunc(result.Warnings, func(a, b ValidationWarning) int {
		return compareIssues(a.Location, a.Code, b.Location, b.Code)
	})

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	result.Suggestions = generateSuggestions(desc)

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(desc statemachine.Description, rules []Rule) ValidationResult {
	result := ValidateWithRules(desc, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil

	slices.SortStableFunc(result.Errors, func(a, b ValidationError) int {
		return compareIssues(a.Location, a.Code, b.Location, b.Code)
	})

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

func compareIssues(aLoc Location, aCode string, bLoc Location, bCode string) int {
	if aLoc.State != bLoc.State {
		if natsort.Compare(aLoc.State, bLoc.State) {
			return -1
		}

		return 1
	}

	return cmp.Compare(aCode, bCode)
}

// generateSuggestions provides general improvement suggestions.
func generateSuggestions(desc statemachine.Description) []Suggestion {
	var suggestions []Suggestion

	hasDisplayName := slices.ContainsFunc(desc.States, func(state statemachine.StateDescription) bool {
		return state.DisplayName != "" && state.DisplayName != state.Name
	})

	if !hasDisplayName && len(desc.States) > 3 {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider adding display names to make diagrams and logs easier to read",
			Example: `states:
  - name: ProcessingPayment
    displayName: Processing payment`,
		})
	}

	fanOut := false

	for _, state := range desc.States {
		if len(desc.Targets(state.Name)) > 1 && !state.HasGuard {
			fanOut = true

			break
		}
	}

	if fanOut && hasAnyHooks(desc) {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider guarding states with several targets so only the intended one is taken",
			Example: `machine.Configure(Pending, func(cfg *statemachine.StateConfig[State, *Job]) {
	cfg.GuardFunc(func(target State, job *Job) bool { return target != Active || job.Ready })
})`,
		})
	}

	return suggestions
}

func hasAnyHooks(desc statemachine.Description) bool {
	return slices.ContainsFunc(desc.States, func(state statemachine.StateDescription) bool {
		return state.HasEnterHook || state.HasExitHook || state.HasGuard
	})
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ Definition has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  [%s] %s", err.Code, err.Message)

			if err.Location.State != "" {
				fmt.Fprintf(&sb, " (state: %s)", err.Location.State)
			}

			sb.WriteString("\n")

			if err.Fix != nil {
				fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
			}
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n💡 %d suggestion(s) for improvement\n", len(r.Suggestions))

		for _, suggestion := range r.Suggestions {
			fmt.Fprintf(&sb, "  - %s\n", suggestion.Message)
		}
	}

	return sb.String()
}
