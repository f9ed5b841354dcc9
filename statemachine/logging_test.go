package statemachine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger captures the names of Logger calls.
type recordingLogger struct {
	mu    sync.Mutex
	calls []string
}

func (l *recordingLogger) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, call)
}

func (l *recordingLogger) TransitionRequested(context.Context, string, string, string) {
	l.add("requested")
}

func (l *recordingLogger) TransitionRejected(context.Context, string, string, string, error) {
	l.add("rejected")
}

func (l *recordingLogger) TransitionCompleted(context.Context, string, string, string, time.Duration) {
	l.add("completed")
}

func (l *recordingLogger) TransitionFailed(context.Context, string, string, string, time.Duration, error) {
	l.add("failed")
}

func (l *recordingLogger) HookCompleted(_ context.Context, _, state string, phase HookPhase, _ time.Duration, _ error) {
	l.add("hook:" + string(phase) + ":" + state)
}

func (l *recordingLogger) GuardFailed(context.Context, string, string, string, error) {
	l.add("guard")
}

func (l *recordingLogger) ObserverPanicked(context.Context, string, string, string, any) {
	l.add("observer-panic")
}

func TestLoggerLifecycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		configure func(m *Machine[jobState, *job])
		target    jobState
		expected  []string
	}{
		{
			name: "success",
			configure: func(m *Machine[jobState, *job]) {
				m.Configure(jobPending, func(cfg *StateConfig[jobState, *job]) { cfg.OnExitFunc(func(*job) {}) }).
					Configure(jobActive, func(cfg *StateConfig[jobState, *job]) { cfg.OnEnterFunc(func(*job) {}) })
			},
			target:   jobActive,
			expected: []string{"requested", "hook:exit:Pending", "hook:enter:Active", "completed"},
		},
		{
			name:      "not allowed",
			configure: func(*Machine[jobState, *job]) {},
			target:    jobDone,
			expected:  []string{"requested", "rejected"},
		},
		{
			name: "guard error",
			configure: func(m *Machine[jobState, *job]) {
				m.Configure(jobPending, func(cfg *StateConfig[jobState, *job]) {
					cfg.Guard(func(context.Context, jobState, *job) (bool, error) { return false, errBoom })
				})
			},
			target:   jobActive,
			expected: []string{"requested", "guard", "rejected"},
		},
		{
			name: "hook failure",
			configure: func(m *Machine[jobState, *job]) {
				m.Configure(jobActive, func(cfg *StateConfig[jobState, *job]) {
					cfg.OnEnter(func(context.Context, *job) error { return errBoom })
				})
			},
			target:   jobActive,
			expected: []string{"requested", "hook:enter:Active", "failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := &recordingLogger{}

			machine, err := New(allJobStates(), jobPending, &job{}, WithLogger(logger))
			require.NoError(t, err)

			machine.AllowTransition(jobPending, jobActive)
			tt.configure(machine)

			machine.TransitionTo(t.Context(), tt.target)

			assert.Equal(t, tt.expected, logger.calls)
		})
	}
}

func TestSelfTransitionIsNotLogged(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}

	machine, err := New(allJobStates(), jobPending, &job{}, WithLogger(logger))
	require.NoError(t, err)

	require.True(t, machine.TransitionTo(t.Context(), jobPending).Success)
	assert.Empty(t, logger.calls)
}

func TestDefaultLoggerOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	machine, err := New(allJobStates(), jobPending, &job{}, WithName("jobs"), WithLogger(logger))
	require.NoError(t, err)

	machine.
		Configure(jobActive, func(cfg *StateConfig[jobState, *job]) { cfg.OnEnterFunc(func(*job) {}) }).
		AllowTransition(jobPending, jobActive)

	require.True(t, machine.TransitionTo(t.Context(), jobActive).Success)

	var records []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))

		records = append(records, record)
	}

	require.Len(t, records, 3)

	assert.Equal(t, "Transition requested", records[0]["msg"])
	assert.Equal(t, "Hook completed", records[1]["msg"])
	assert.Equal(t, "Pending", records[1]["transition_from"])
	assert.Equal(t, "Active", records[1]["transition_to"])
	assert.Equal(t, "Transition executed", records[2]["msg"])
	assert.Equal(t, "INFO", records[2]["level"])
	assert.Equal(t, "jobs", records[2]["machine"])
}

func TestNewSlogLoggerFallsBackToDefault(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), NewSlogLogger(nil).logger)
}
