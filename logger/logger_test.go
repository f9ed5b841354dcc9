package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// restoreDefaults puts the process-wide loggers back after a test reconfigures them.
func restoreDefaults(t *testing.T) {
	t.Helper()

	prevSlog := slog.Default()
	prevLogOut, prevLogFlags, prevLogPrefix := log.Writer(), log.Flags(), log.Prefix()

	t.Cleanup(func() {
		slog.SetDefault(prevSlog)

		log.SetOutput(prevLogOut)
		log.SetFlags(prevLogFlags)
		log.SetPrefix(prevLogPrefix)
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		lines = append(lines, entry)
	}

	return lines
}

func TestConfigureLoggingWithOptions(t *testing.T) { //nolint:paralleltest
	restoreDefaults(t)

	var buf bytes.Buffer

	logger := ConfigureLoggingWithOptions(Options{
		Subsystem: "fsm",
		JSON:      true,
		MinLevel:  slog.LevelInfo,
		Output:    &buf,
	})

	assert.Same(t, logger, slog.Default())

	ctx := With(t.Context(), "machine", "orders")
	Get(ctx).Debug("dropped")
	Get(ctx).Info("transition completed", "to_state", "Paid")
	Get(WithSubsystem(ctx, "visualizer")).Warn("overridden")
	Get(WithMuted(ctx, true)).Error("muted")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "transition completed", lines[0]["msg"])
	assert.Equal(t, "fsm", lines[0]["subsystem"])
	assert.Equal(t, "orders", lines[0]["machine"])
	assert.Equal(t, "Paid", lines[0]["to_state"])

	assert.Equal(t, "visualizer", lines[1]["subsystem"])
}

func TestGetSubsystem(t *testing.T) { //nolint:paralleltest
	restoreDefaults(t)

	ConfigureLoggingWithOptions(Options{Subsystem: "default-sub", Output: &bytes.Buffer{}})

	assert.Equal(t, "default-sub", GetSubsystem(t.Context()))
	assert.Equal(t, "custom", GetSubsystem(WithSubsystem(t.Context(), "custom")))
	assert.Equal(t, "default-sub", GetSubsystem(nil)) //nolint:staticcheck // nil context is tolerated
}

func TestWithAccumulatesValues(t *testing.T) {
	t.Parallel()

	ctx := With(t.Context(), "a", 1)
	ctx = With(ctx, "b", 2)

	assert.Equal(t, []any{"a", 1, "b", 2}, getValues(ctx))
	assert.Same(t, ctx, With(ctx))
}

func TestLegacyLoggerUsesHandler(t *testing.T) { //nolint:paralleltest
	restoreDefaults(t)

	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:   "legacy",
		JSON:        true,
		LegacyLevel: slog.LevelWarn,
		Output:      &buf,
	})

	log.Println("from the standard logger")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "from the standard logger", lines[0]["msg"])
}

func TestLoadConfig(t *testing.T) { //nolint:paralleltest
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_OUTPUT", "stderr")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.JSON)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, slog.LevelInfo, cfg.LegacyLevel)

	out, err := cfg.writer()
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, out)

	t.Setenv("LOG_LEVEL", "loud")

	_, err = LoadConfig()
	require.Error(t, err)
}

func TestConfigureLoggingRejectsUnknownOutput(t *testing.T) { //nolint:paralleltest
	t.Setenv("LOG_OUTPUT", "syslog")

	_, err := ConfigureLogging("fsm")
	require.ErrorIs(t, err, ErrInvalidLogOutput)
}

func TestConfigureLoggingTeesToProvider(t *testing.T) { //nolint:paralleltest
	restoreDefaults(t)
	t.Setenv("LOG_JSON", "true")

	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))

	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	var buf bytes.Buffer

	logger, err := ConfigureLogging("fsm", WithOutput(&buf), WithLoggerProvider(provider))
	require.NoError(t, err)

	logger.Debug("below the minimum level")
	logger.Info("transition completed", "machine", "orders")

	require.Len(t, decodeLines(t, &buf), 1)

	records := exporter.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "transition completed", records[0].Body().AsString())
}
