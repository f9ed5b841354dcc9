// Command fsmviz validates state machine definitions and renders them as
// Mermaid diagrams. With -interactive it drives the sample order workflow.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/amp-labs/amp-fsm/build"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/orders"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/stage"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/visualizer"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/joho/godotenv"
)

// hookTimeout bounds each simulated side effect of the interactive workflow.
const hookTimeout = 5 * time.Second

func main() {
	os.Exit(realMain())
}

func realMain() int {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	handler := shutdown.SetupHandler(context.Background())
	defer handler.Stop()

	ctx := handler.Context()

	_, err = logger.ConfigureLogging("fsmviz", logger.WithOutput(os.Stderr))
	if err != nil {
		slog.Error("failed to configure logging", "error", err)

		return exitFailure
	}

	otelConfig, err := telemetry.LoadConfigFromEnv(string(stage.Current()))
	if err != nil {
		slog.Error("failed to load telemetry config", "error", err)

		return exitFailure
	}

	err = telemetry.Initialize(ctx, otelConfig)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)

		return exitFailure
	}

	defer func() {
		handler.Stop()

		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to shut down telemetry", "error", err)
		}
	}()

	handler.BeforeShutdown(func() {
		if err := telemetry.Flush(ctx); err != nil {
			slog.Warn("failed to flush telemetry", "error", err)
		}
	})

	if provider := telemetry.LoggerProvider(); provider != nil {
		_, err = logger.ConfigureLogging("fsmviz",
			logger.WithOutput(os.Stderr),
			logger.WithLoggerProvider(provider))
		if err != nil {
			slog.Error("failed to configure logging", "error", err)

			return exitFailure
		}
	}

	statemachine.SetDefinitionLoader(newEmbedLoader())

	cmd := &app{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		prompter:   cli.NewTerminalPrompter(),
		terminal:   cli.LoadTerminal(),
		renderer:   visualizer.NewRenderer(),
		build:      build.Current(),
		newService: newOrderService,
	}

	return cmd.run(ctx, os.Args[1:])
}

func newOrderService(context.Context) (*orders.Service, error) {
	factory := orders.NewFactory(orders.WithMachineOptions(
		statemachine.WithHookTimeout(hookTimeout),
	))

	return orders.NewService(orders.NewMemoryRepository(), factory)
}
