package statemachine

import (
	"context"
	"slices"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// transitionContextKey is the key used to store the in-flight transition in Go context.
	transitionContextKey contextKey = "statemachine_transition"
	// slotHoldersContextKey stores the machines whose slot the caller holds.
	slotHoldersContextKey contextKey = "statemachine_slot_holders"
)

// TransitionInfo describes the transition a hook is running for.
type TransitionInfo struct {
	Machine string
	From    string
	To      string
	Phase   HookPhase
}

// TransitionFromContext returns the transition a hook is running for.
// It reports false outside of hooks.
func TransitionFromContext(ctx context.Context) (TransitionInfo, bool) {
	if ctx == nil {
		return TransitionInfo{}, false
	}

	info, ok := ctx.Value(transitionContextKey).(TransitionInfo)

	return info, ok
}

func withTransition(ctx context.Context, info TransitionInfo) context.Context {
	return context.WithValue(ctx, transitionContextKey, info)
}

// withSlotHolder marks ctx as running inside a transition of machine.
func withSlotHolder(ctx context.Context, machine any) context.Context {
	holders, _ := ctx.Value(slotHoldersContextKey).([]any)

	return context.WithValue(ctx, slotHoldersContextKey, append(slices.Clone(holders), machine))
}

func holdsSlot(ctx context.Context, machine any) bool {
	holders, _ := ctx.Value(slotHoldersContextKey).([]any)

	return slices.Contains(holders, machine)
}
