//nolint:err113 // Test file uses errors.New() for creating test errors
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPayment = errors.New("payment declined")

func handleRecord(t *testing.T, attrs ...slog.Attr) map[string]any {
	t.Helper()

	var buf bytes.Buffer

	handler := &slogErrorLogger{inner: slog.NewJSONHandler(&buf, nil)}

	record := slog.NewRecord(time.Now(), slog.LevelError, "transition failed", 0)
	record.AddAttrs(attrs...)

	require.NoError(t, handler.Handle(t.Context(), record))

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))

	return logData
}

func TestAnnotateError(t *testing.T) {
	t.Parallel()

	t.Run("nil error stays nil", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, AnnotateError(nil, "order_id", "o-1"))
	})

	t.Run("message and chain are preserved", func(t *testing.T) {
		t.Parallel()

		annotated := AnnotateError(errPayment, "order_id", "o-1", "attempt", 2)

		assert.Equal(t, "payment declined", annotated.Error())
		require.ErrorIs(t, annotated, errPayment)

		attrs := ErrorAttrs(annotated)
		require.Len(t, attrs, 2)
		assert.Equal(t, "order_id", attrs[0].Key)
		assert.Equal(t, int64(2), attrs[1].Value.Int64())
	})

	t.Run("layers are collected outermost first", func(t *testing.T) {
		t.Parallel()

		inner := AnnotateError(errPayment, "gateway", "stripe")
		wrapped := fmt.Errorf("charge order: %w", inner)
		outer := AnnotateError(wrapped, "order_id", "o-1")

		attrs := ErrorAttrs(outer)
		require.Len(t, attrs, 2)
		assert.Equal(t, "order_id", attrs[0].Key)
		assert.Equal(t, "gateway", attrs[1].Key)
	})

	t.Run("errors.As reaches the wrapped type", func(t *testing.T) {
		t.Parallel()

		annotated := AnnotateError(&customError{msg: "custom"}, "k", "v")

		var ce *customError
		require.ErrorAs(t, annotated, &ce)
		assert.Equal(t, "custom", ce.msg)
	})
}

func TestSlogErrorLoggerHandle(t *testing.T) {
	t.Parallel()

	t.Run("plain errors pass through", func(t *testing.T) {
		t.Parallel()

		logData := handleRecord(t, slog.Any("error", errPayment), slog.String("state", "Paid"))

		assert.Equal(t, "payment declined", logData["error"])
		assert.Equal(t, "Paid", logData["state"])
	})

	t.Run("annotations become attributes", func(t *testing.T) {
		t.Parallel()

		annotated := AnnotateError(errPayment, "order_id", "o-1", "amount", 42, "retry", true)
		logData := handleRecord(t,
			slog.String("machine", "orders"),
			slog.Any("error", annotated),
			slog.Int("attempt", 3))

		assert.Equal(t, "payment declined", logData["error"])
		assert.Equal(t, "orders", logData["machine"])
		assert.Equal(t, "o-1", logData["order_id"])
		assert.InDelta(t, 42, logData["amount"], 0.001)
		assert.Equal(t, true, logData["retry"])
		assert.InDelta(t, 3, logData["attempt"], 0.001)
	})

	t.Run("joined errors are indexed", func(t *testing.T) {
		t.Parallel()

		joined := errors.Join(
			AnnotateError(errors.New("order one"), "order_id", "o-1"),
			errors.New("order two"),
			errors.Join(AnnotateError(errors.New("order three"), "region", "eu")),
		)

		logData := handleRecord(t, slog.Any("error", joined))

		assert.Equal(t, "order one", logData["error[0]"])
		assert.Equal(t, "order two", logData["error[1]"])
		assert.Equal(t, "order three", logData["error[2]"])
		assert.Equal(t, "o-1", logData["order_id"])
		assert.Equal(t, "eu", logData["region"])
		assert.NotContains(t, logData, "error")
	})
}

func TestSlogErrorLoggerDerivedHandlers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := &slogErrorLogger{inner: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})}

	assert.True(t, base.Enabled(t.Context(), slog.LevelError))
	assert.False(t, base.Enabled(t.Context(), slog.LevelInfo))

	derived := base.WithAttrs([]slog.Attr{slog.String("machine", "orders")}).WithGroup("transition")
	require.IsType(t, &slogErrorLogger{}, derived)

	logger := slog.New(derived)
	logger.Error("failed", "error", AnnotateError(errPayment, "order_id", "o-1"))

	output := buf.String()
	assert.Contains(t, output, `"machine":"orders"`)
	assert.Contains(t, output, `"transition":{`)
	assert.Contains(t, output, `"order_id":"o-1"`)
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
