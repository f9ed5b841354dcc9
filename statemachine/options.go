package statemachine

import "time"

// Option configures a Machine at construction time.
type Option func(*options)

type options struct {
	name        string
	logger      Logger
	hookTimeout time.Duration
	tracing     bool
	metrics     bool
}

func defaultOptions() options {
	return options{
		tracing: true,
		metrics: true,
	}
}

// WithName names the machine. The name is attached to logs, spans and
// metric labels so several workflows can be told apart.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger for transition lifecycle logging.
// Without one the machine does not log.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHookTimeout bounds how long a single hook may run.
// A timeout of 0 means no timeout.
func WithHookTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.hookTimeout = timeout
	}
}

// WithTracing enables or disables OpenTelemetry spans. Enabled by default;
// spans go to the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// WithMetrics enables or disables Prometheus metrics. Enabled by default.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metrics = enabled
	}
}
