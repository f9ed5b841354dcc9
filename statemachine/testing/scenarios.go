package testing

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// TestScenario is a sequence of requested transitions and the matchers the
// resulting observation must satisfy.
type TestScenario struct {
	Name    string
	Build   func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job]
	Job     *Job
	Steps   []Phase
	Expect  []Matcher[Phase]
	Tracker *HookTracker
}

// RunScenario executes a test scenario as a subtest and validates results.
// Rejected steps do not stop the scenario; matchers decide the outcome.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		job := scenario.Job
		if job == nil {
			job = CreateTestJob()
		}

		machine := NewTestMachine(t, scenario.Build(t, job), scenario.Tracker)

		ctx := context.Background()

		for _, step := range scenario.Steps {
			machine.Transition(ctx, step)
		}

		AssertAll(t, machine.Observation(), scenario.Expect...)
	})
}

// LinearWorkflowScenario creates a scenario for testing linear workflows.
func LinearWorkflowScenario() TestScenario {
	return TestScenario{
		Name:  "Linear Workflow",
		Build: CommonTestMachines.Linear,
		Steps: []Phase{PhaseValidate, PhaseSuccess},
		Expect: []Matcher[Phase]{
			PathWas(PhaseInit, PhaseValidate, PhaseSuccess),
			FinalState(PhaseSuccess),
		},
	}
}

// BranchingWorkflowScenario creates a scenario for testing guarded branches.
// The job fails, so the success branch is rejected.
func BranchingWorkflowScenario() TestScenario {
	return TestScenario{
		Name:  "Branching Workflow",
		Build: CommonTestMachines.Branching,
		Job:   &Job{Succeed: false},
		Steps: []Phase{PhaseSuccess, PhaseFailure},
		Expect: []Matcher[Phase]{
			TransitionWasTaken(PhaseInit, PhaseFailure),
			FinalState(PhaseFailure),
		},
	}
}

// ErrorRecoveryScenario creates a scenario for testing invalid input handling.
func ErrorRecoveryScenario() TestScenario {
	return TestScenario{
		Name:  "Error Recovery",
		Build: CommonTestMachines.Complex,
		Job:   &Job{Valid: false, MaxAttempts: 3},
		Steps: []Phase{PhaseValidate, PhaseProcess, PhaseFailure},
		Expect: []Matcher[Phase]{
			PathWas(PhaseInit, PhaseValidate, PhaseFailure),
		},
	}
}

// RetryScenario creates a scenario for testing retry loops until attempts
// run out.
func RetryScenario() TestScenario {
	return TestScenario{
		Name:  "Retry Logic",
		Build: CommonTestMachines.Loop,
		Job:   &Job{Succeed: false, MaxAttempts: 2},
		Steps: []Phase{PhaseRetry, PhaseProcess, PhaseRetry, PhaseProcess, PhaseFailure},
		Expect: []Matcher[Phase]{
			PathWas(PhaseProcess, PhaseRetry, PhaseProcess, PhaseRetry, PhaseFailure),
			FinalState(PhaseFailure),
		},
	}
}
