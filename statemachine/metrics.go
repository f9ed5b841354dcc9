package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Metric definitions with appropriate labels.
var (
	// TransitionTotal counts transition attempts by machine, states and outcome.
	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of transition attempts by machine, from_state, to_state and outcome",
	}, []string{"machine", "from_state", "to_state", "outcome"})

	// TransitionDuration tracks time spent in hooks for each attempt that ran them.
	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_transition_duration_seconds",
		Help:    "Duration of transition hook execution by machine and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"machine", "outcome"})

	// HookDuration tracks individual hook execution time.
	hookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_hook_duration_seconds",
		Help:    "Duration of enter/exit hook execution by machine, state, phase and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"machine", "state", "phase", "outcome"})

	// SlotWait tracks how long transitions wait for the machine to become free.
	slotWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_slot_wait_seconds",
		Help:    "Time spent waiting for exclusive access to a machine",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
	}, []string{"machine"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

func hookOutcome(err error) string {
	if err != nil {
		return outcomeError
	}

	return outcomeSuccess
}
