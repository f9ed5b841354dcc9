package statemachine

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startTransitionSpan creates the root span for one transition attempt.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startTransitionSpan(ctx context.Context, machine, from, to string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "statemachine.transition")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	)
	logSpanDebug(ctx, "started", "statemachine.transition", span)

	return ctx, span
}

// startHookSpan creates a child span for an enter or exit hook.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startHookSpan(ctx context.Context, machine, state string, phase HookPhase) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	spanName := "state." + string(phase) + "." + state
	ctx, span := tracer.Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("state", state),
		attribute.String("phase", string(phase)),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

// endSpan records the outcome on a span and ends it.
func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}

// noopSpan returns a span that records nothing, for machines with tracing disabled.
func noopSpan() trace.Span {
	return trace.SpanFromContext(context.Background())
}

// logSpanDebug logs span creation when STATEMACHINE_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isDebugMode() {
		return
	}

	spanCtx := span.SpanContext()
	slog.DebugContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

// isDebugMode checks if STATEMACHINE_DEBUG mode is enabled.
func isDebugMode() bool {
	return strings.EqualFold(os.Getenv("STATEMACHINE_DEBUG"), "1") ||
		strings.EqualFold(os.Getenv("STATEMACHINE_DEBUG"), "true")
}
