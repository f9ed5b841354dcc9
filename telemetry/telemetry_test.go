package telemetry

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func clearTelemetryEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"OTEL_ENABLED",
		"OTEL_LOGS_ENABLED",
		"OTEL_SERVICE_NAME",
		"OTEL_SERVICE_VERSION",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT",
		"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT",
		"KUBERNETES_SERVICE_HOST",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigFromEnv_GKEDetection(t *testing.T) { //nolint:paralleltest
	tests := []struct {
		name             string
		kubernetesHost   string
		customEndpoint   string
		expectedEndpoint string
	}{
		{
			name:             "GKE environment detected",
			kubernetesHost:   "10.0.0.1",
			expectedEndpoint: gkeCollectorEndpoint,
		},
		{
			name:             "Non-GKE environment",
			expectedEndpoint: "",
		},
		{
			name:             "Custom endpoint overrides GKE default",
			kubernetesHost:   "10.0.0.1",
			customEndpoint:   "http://custom-collector:4318",
			expectedEndpoint: "http://custom-collector:4318",
		},
	}

	for _, test := range tests { //nolint:paralleltest
		t.Run(test.name, func(t *testing.T) {
			clearTelemetryEnv(t)

			if test.kubernetesHost != "" {
				t.Setenv("KUBERNETES_SERVICE_HOST", test.kubernetesHost)
			}

			if test.customEndpoint != "" {
				t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", test.customEndpoint)
			}

			cfg, err := LoadConfigFromEnv("test")
			require.NoError(t, err)

			assert.Equal(t, test.expectedEndpoint, cfg.Endpoint)
			assert.Equal(t, test.expectedEndpoint, cfg.LogsEndpoint)
		})
	}
}

func TestLoadConfigFromEnv_DefaultValues(t *testing.T) { //nolint:paralleltest
	clearTelemetryEnv(t)

	cfg, err := LoadConfigFromEnv("staging")
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.ExportLogs)
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) { //nolint:paralleltest
	clearTelemetryEnv(t)
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_LOGS_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "fsmviz")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "http://logs:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "250ms")

	cfg, err := LoadConfigFromEnv("prod")
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.ExportLogs)
	assert.Equal(t, "fsmviz", cfg.ServiceName)
	assert.Equal(t, "http://logs:4318", cfg.LogsEndpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "soon")

	_, err = LoadConfigFromEnv("prod")
	require.Error(t, err)
}

func TestInitializeDisabled(t *testing.T) { //nolint:paralleltest
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: false}))
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: true}))

	assert.Nil(t, LoggerProvider())
	require.NoError(t, Flush(t.Context()))
	require.NoError(t, Shutdown(t.Context()))
}

func TestInitializeAndShutdown(t *testing.T) { //nolint:paralleltest
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	err := Initialize(t.Context(), &Config{
		ServiceName:    "fsm-test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		Endpoint:       "http://127.0.0.1:4318",
		LogsEndpoint:   "http://127.0.0.1:4318",
		Enabled:        true,
		ExportLogs:     true,
		Timeout:        100 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.NotNil(t, LoggerProvider())
	require.NoError(t, Flush(t.Context()))

	require.NoError(t, Shutdown(t.Context()))
	assert.Nil(t, LoggerProvider())
}
