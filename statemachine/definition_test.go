package statemachine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobsYAML = `name: jobs
states:
  - name: Pending
    displayName: Waiting for input
  - name: Active
  - name: Done
  - name: Failed
transitions:
  - from: Pending
    to: [Active, Failed]
  - from: Active
    to: [Done, Failed]
`

func TestLoadDefinitionFromBytes(t *testing.T) {
	t.Parallel()

	def, err := LoadDefinitionFromBytes([]byte(jobsYAML))
	require.NoError(t, err)

	assert.Equal(t, "jobs", def.Name)
	require.Len(t, def.States, 4)
	assert.Equal(t, "Waiting for input", def.States[0].DisplayName)
	require.Len(t, def.Transitions, 2)
	assert.Equal(t, []string{"Done", "Failed"}, def.Transitions[1].To)
}

func TestDefinitionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"missing name", "states: [{name: A}]", ErrDefinitionNameRequired},
		{"no states", "name: x", ErrStateRequired},
		{"empty state name", "name: x\nstates: [{name: ''}]", ErrStateNameRequired},
		{"duplicate state", "name: x\nstates: [{name: A}, {name: A}]", ErrDuplicateStateName},
		{"missing from", "name: x\nstates: [{name: A}]\ntransitions: [{to: [A]}]", ErrTransitionFromRequired},
		{"missing to", "name: x\nstates: [{name: A}]\ntransitions: [{from: A}]", ErrTransitionToRequired},
		{"unknown target", "name: x\nstates: [{name: A}]\ntransitions: [{from: A, to: [B]}]", ErrUnknownStateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadDefinitionFromBytes([]byte(tt.yaml))
			require.ErrorIs(t, err, tt.err)
		})
	}

	_, err := LoadDefinitionFromBytes([]byte("name: [unclosed"))
	require.Error(t, err)
}

func TestLoadDefinitionFromFileAndFS(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobsYAML), 0o600))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "jobs", def.Name)

	fsys := fstest.MapFS{"defs/jobs.yaml": {Data: []byte(jobsYAML)}}

	def, err = LoadDefinitionFromFS(fsys, "defs/jobs.yaml")
	require.NoError(t, err)
	assert.Len(t, def.States, 4)

	_, err = LoadDefinitionFromFS(fsys, "defs/missing.yaml")
	require.Error(t, err)
}

type mapLoader map[string]string

func (l mapLoader) LoadByName(name string) ([]byte, error) {
	data, ok := l[name]
	if !ok {
		return nil, errors.New("not found") //nolint:err113
	}

	return []byte(data), nil
}

func (l mapLoader) ListAvailable() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}

	return names
}

//nolint:paralleltest // Test modifies the global definition loader
func TestLoadDefinitionByName(t *testing.T) {
	SetDefinitionLoader(nil)

	_, err := LoadDefinition("jobs")
	require.ErrorIs(t, err, ErrNoDefinitionLoader)

	SetDefinitionLoader(mapLoader{"jobs": jobsYAML})
	t.Cleanup(func() { SetDefinitionLoader(nil) })

	def, err := LoadDefinition("jobs")
	require.NoError(t, err)
	assert.Equal(t, "jobs", def.Name)

	_, err = LoadDefinition("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func TestApplyDefinition(t *testing.T) {
	t.Parallel()

	def, err := LoadDefinitionFromBytes([]byte(jobsYAML))
	require.NoError(t, err)

	machine, _ := newJobMachine(t, jobPending)
	require.NoError(t, ApplyDefinition(machine, def))

	assert.Equal(t, "Waiting for input", machine.DisplayName(jobPending))
	assert.Equal(t, []jobState{jobActive, jobFailed}, machine.AllowedTransitions(jobPending))
	assert.Equal(t, []jobState{jobDone, jobFailed}, machine.AllowedTransitions(jobActive))

	require.True(t, machine.TransitionTo(t.Context(), jobActive).Success)
}

func TestApplyDefinitionLeavesMachineUntouchedOnError(t *testing.T) {
	t.Parallel()

	def := &Definition{
		Name:   "jobs",
		States: []StateDefinition{{Name: "Pending", DisplayName: "Waiting"}, {Name: "Archived"}},
		Transitions: []TransitionDefinition{
			{From: "Pending", To: []string{"Archived"}},
		},
	}

	machine, _ := newJobMachine(t, jobPending)

	err := ApplyDefinition(machine, def)
	require.ErrorIs(t, err, ErrUnknownStateName)
	assert.Contains(t, err.Error(), "Archived")
	assert.Equal(t, "Pending", machine.DisplayName(jobPending))
	assert.Empty(t, machine.AllowedTransitions(jobPending))
}

func TestDefinitionRoundTrip(t *testing.T) {
	t.Parallel()

	machine, _ := newJobMachine(t, jobPending, WithName("jobs"))
	machine.
		Configure(jobDone, func(cfg *StateConfig[jobState, *job]) { cfg.WithDisplayName("Finished") }).
		AllowTransitions(jobPending, jobActive, jobFailed).
		AllowTransition(jobActive, jobDone)

	def := DefinitionOf(machine.Describe())
	require.NoError(t, def.Validate())

	data, err := def.Marshal()
	require.NoError(t, err)

	loaded, err := LoadDefinitionFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, def, loaded)

	rebuilt, _ := newJobMachine(t, jobPending)
	require.NoError(t, ApplyDefinition(rebuilt, loaded))

	assert.Equal(t, machine.Describe().Transitions, rebuilt.Describe().Transitions)
	assert.Equal(t, "Finished", rebuilt.DisplayName(jobDone))
}

func TestDefinitionDescribe(t *testing.T) {
	t.Parallel()

	def, err := LoadDefinitionFromBytes([]byte(jobsYAML))
	require.NoError(t, err)

	desc := def.Describe()

	assert.Equal(t, "jobs", desc.Name)
	assert.Equal(t, "Pending", desc.CurrentState)

	pending, ok := desc.State("Pending")
	require.True(t, ok)
	assert.Equal(t, "Waiting for input", pending.DisplayName)

	active, ok := desc.State("Active")
	require.True(t, ok)
	assert.Equal(t, "Active", active.DisplayName)

	assert.Equal(t, []string{"Active", "Failed"}, desc.Targets("Pending"))
	assert.Empty(t, desc.Targets("Done"))
}
