package statemachine

import (
	"context"
	"log/slog"
	"time"
)

// Logger provides logging hooks for transition execution.
type Logger interface {
	TransitionRequested(ctx context.Context, machine, from, to string)
	TransitionRejected(ctx context.Context, machine, from, to string, err error)
	TransitionCompleted(ctx context.Context, machine, from, to string, duration time.Duration)
	TransitionFailed(ctx context.Context, machine, from, to string, duration time.Duration, err error)
	HookCompleted(ctx context.Context, machine, state string, phase HookPhase, duration time.Duration, err error)
	GuardFailed(ctx context.Context, machine, from, to string, err error)
	ObserverPanicked(ctx context.Context, machine, from, to string, recovered any)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger that writes to slog.Default().
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(slog.Default())
}

// NewSlogLogger creates a logger that writes to the given slog logger.
// A nil logger falls back to slog.Default().
func NewSlogLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultLogger{
		logger: logger,
	}
}

func (l *DefaultLogger) TransitionRequested(ctx context.Context, machine, from, to string) {
	l.logger.DebugContext(ctx, "Transition requested",
		"machine", machine,
		"from", from,
		"to", to,
	)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, machine, from, to string, err error) {
	l.logger.InfoContext(ctx, "Transition rejected",
		"machine", machine,
		"from", from,
		"to", to,
		"reason", err,
	)
}

func (l *DefaultLogger) TransitionCompleted(ctx context.Context, machine, from, to string, duration time.Duration) {
	l.logger.InfoContext(ctx, "Transition executed",
		"machine", machine,
		"from", from,
		"to", to,
		"duration_ms", duration.Milliseconds(),
	)
}

func (l *DefaultLogger) TransitionFailed(
	ctx context.Context, machine, from, to string, duration time.Duration, err error,
) {
	l.logger.ErrorContext(ctx, "Transition failed",
		"machine", machine,
		"from", from,
		"to", to,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
}

func (l *DefaultLogger) HookCompleted(
	ctx context.Context, machine, state string, phase HookPhase, duration time.Duration, err error,
) {
	fields := []any{
		"machine", machine,
		"state", state,
		"phase", string(phase),
		"duration_ms", duration.Milliseconds(),
	}

	if info, ok := TransitionFromContext(ctx); ok {
		fields = append(fields, "transition_from", info.From, "transition_to", info.To)
	}

	if err != nil {
		l.logger.ErrorContext(ctx, "Hook completed with error", append(fields, "error", err)...)
	} else {
		l.logger.DebugContext(ctx, "Hook completed", fields...)
	}
}

func (l *DefaultLogger) GuardFailed(ctx context.Context, machine, from, to string, err error) {
	l.logger.WarnContext(ctx, "Guard evaluation failed",
		"machine", machine,
		"from", from,
		"to", to,
		"error", err,
	)
}

func (l *DefaultLogger) ObserverPanicked(ctx context.Context, machine, from, to string, recovered any) {
	l.logger.ErrorContext(ctx, "State change observer panicked",
		"machine", machine,
		"from", from,
		"to", to,
		"panic", recovered,
	)
}
