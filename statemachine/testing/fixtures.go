package testing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// Phase is a ready-made state type for tests.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseValidate
	PhaseProcess
	PhaseRetry
	PhaseSuccess
	PhaseFailure
)

// AllPhases returns every Phase in declaration order.
func AllPhases() []Phase {
	return []Phase{PhaseInit, PhaseValidate, PhaseProcess, PhaseRetry, PhaseSuccess, PhaseFailure}
}

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseValidate:
		return "validate"
	case PhaseProcess:
		return "process"
	case PhaseRetry:
		return "retry"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Job is the context value used by the fixture machines.
type Job struct {
	Valid       bool
	Succeed     bool
	Attempts    int
	MaxAttempts int
	Completed   bool
}

// CreateTestJob creates a job that validates and succeeds, with three attempts.
func CreateTestJob() *Job {
	return &Job{Valid: true, Succeed: true, MaxAttempts: 3}
}

// LoadTestDefinition loads a definition from the testdata directory.
func LoadTestDefinition(name string) (*statemachine.Definition, error) {
	return statemachine.LoadDefinition(filepath.Join("testdata", name))
}

// NewPhaseMachine creates an unconfigured machine over all phases.
func NewPhaseMachine(
	t *testing.T, initial Phase, job *Job, opts ...statemachine.Option,
) *statemachine.Machine[Phase, *Job] {
	t.Helper()

	machine, err := statemachine.New(AllPhases(), initial, job, opts...)
	require.NoError(t, err, "failed to create machine")

	return machine
}

type phaseConfig = statemachine.StateConfig[Phase, *Job]

func markCompleted(cfg *phaseConfig) {
	cfg.OnEnterFunc(func(job *Job) { job.Completed = true })
}

// CommonTestMachines provides frequently used test machines.
var CommonTestMachines = struct { //nolint:gochecknoglobals
	Linear    func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job]
	Branching func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job]
	Loop      func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job]
	Complex   func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job]
}{
	// init -> validate -> success
	Linear: func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job] {
		t.Helper()

		return NewPhaseMachine(t, PhaseInit, job, statemachine.WithName("linear")).
			Configure(PhaseSuccess, markCompleted).
			AllowTransition(PhaseInit, PhaseValidate).
			AllowTransition(PhaseValidate, PhaseSuccess)
	},
	// init -> success | failure, chosen by job.Succeed
	Branching: func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job] {
		t.Helper()

		return NewPhaseMachine(t, PhaseInit, job, statemachine.WithName("branching")).
			Configure(PhaseInit, func(cfg *phaseConfig) {
				cfg.GuardFunc(func(target Phase, job *Job) bool {
					return (target == PhaseSuccess) == job.Succeed
				})
			}).
			AllowTransitions(PhaseInit, PhaseSuccess, PhaseFailure)
	},
	// process -> retry -> process ... -> success, or failure once attempts run out
	Loop: func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job] {
		t.Helper()

		return configureRetries(NewPhaseMachine(t, PhaseProcess, job, statemachine.WithName("loop")))
	},
	// init -> validate -> process with retries, failing on invalid input
	Complex: func(t *testing.T, job *Job) *statemachine.Machine[Phase, *Job] {
		t.Helper()

		machine := NewPhaseMachine(t, PhaseInit, job, statemachine.WithName("complex")).
			Configure(PhaseValidate, func(cfg *phaseConfig) {
				cfg.GuardFunc(func(target Phase, job *Job) bool {
					return (target == PhaseProcess) == job.Valid
				})
			}).
			AllowTransition(PhaseInit, PhaseValidate).
			AllowTransitions(PhaseValidate, PhaseProcess, PhaseFailure)

		return configureRetries(machine)
	},
}

func configureRetries(machine *statemachine.Machine[Phase, *Job]) *statemachine.Machine[Phase, *Job] {
	return machine.
		Configure(PhaseProcess, func(cfg *phaseConfig) {
			cfg.GuardFunc(func(target Phase, job *Job) bool {
				return (target == PhaseSuccess) == job.Succeed
			})
		}).
		Configure(PhaseRetry, func(cfg *phaseConfig) {
			cfg.OnEnter(func(ctx context.Context, job *Job) error {
				job.Attempts++

				return ctx.Err()
			})
			cfg.GuardFunc(func(target Phase, job *Job) bool {
				return (target == PhaseProcess) == (job.Attempts < job.MaxAttempts)
			})
		}).
		Configure(PhaseSuccess, markCompleted).
		AllowTransitions(PhaseProcess, PhaseSuccess, PhaseRetry).
		AllowTransitions(PhaseRetry, PhaseProcess, PhaseFailure)
}
