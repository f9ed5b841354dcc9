package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/amp-fsm/build"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/orders"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/validator"
	"github.com/amp-labs/amp-fsm/statemachine/visualizer"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

type config struct {
	strict      bool
	orders      bool
	fix         bool
	interactive bool
	version     bool
	noHooks     bool
	noGuards    bool
	markCurrent bool
	direction   string
	highlight   string
	theme       string
	svg         string
	source      string
}

// app is the fsmviz command with its side effects injected.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	prompter   cli.Prompter
	terminal   cli.Terminal
	renderer   visualizer.Renderer
	build      *build.Info
	newService func(ctx context.Context) (*orders.Service, error)
}

func (a *app) parseFlags(args []string) (config, error) {
	var cfg config

	flags := flag.NewFlagSet("fsmviz", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	flags.Usage = func() {
		_, _ = fmt.Fprintln(a.stderr, "usage: fsmviz [flags] <definition.yaml | name>")
		_, _ = fmt.Fprintln(a.stderr, "       fsmviz [flags] -orders")
		flags.PrintDefaults()
	}

	flags.BoolVar(&cfg.strict, "strict", false, "treat warnings as errors")
	flags.BoolVar(&cfg.orders, "orders", false, "use the built-in order workflow machine")
	flags.BoolVar(&cfg.fix, "fix", false, "apply suggested fixes and print the fixed definition")
	flags.BoolVar(&cfg.interactive, "interactive", false, "drive sample orders through the workflow")
	flags.BoolVar(&cfg.noHooks, "no-hooks", false, "omit hook markers from state labels")
	flags.BoolVar(&cfg.noGuards, "no-guards", false, "omit guard markers from edges")
	flags.BoolVar(&cfg.markCurrent, "mark-current", false, "style the current state")
	flags.StringVar(&cfg.direction, "direction", "TD", "diagram direction: TD, LR, RL or BT")
	flags.StringVar(&cfg.highlight, "highlight", "", "comma-separated states to highlight")
	flags.StringVar(&cfg.theme, "theme", "default", "color theme: default, dark or forest")
	flags.StringVar(&cfg.svg, "svg", "", "render the diagram to this file with mermaid-cli")
	flags.BoolVar(&cfg.version, "version", false, "print version information and exit")

	err := flags.Parse(args)
	if err != nil {
		return cfg, err
	}

	if cfg.version {
		return cfg, nil
	}

	if cfg.orders || cfg.interactive {
		if flags.NArg() != 0 {
			flags.Usage()

			return cfg, errUsage
		}

		return cfg, nil
	}

	if flags.NArg() != 1 {
		flags.Usage()

		return cfg, errUsage
	}

	cfg.source = flags.Arg(0)

	if cfg.fix && cfg.svg != "" {
		_, _ = fmt.Fprintln(a.stderr, "-fix and -svg cannot be combined")

		return cfg, errUsage
	}

	return cfg, nil
}

func (a *app) run(ctx context.Context, args []string) int {
	cfg, err := a.parseFlags(args)
	if err != nil {
		return exitUsage
	}

	if cfg.version {
		_, _ = fmt.Fprintln(a.stdout, "fsmviz "+a.build.String())

		return exitOK
	}

	if cfg.interactive {
		return a.runInteractive(ctx)
	}

	var (
		desc statemachine.Description
		def  *statemachine.Definition
	)

	if cfg.orders {
		machine, err := orders.NewFactory().Create(&orders.Order{}, statemachine.WithTracing(false))
		if err != nil {
			return a.fail(ctx, "failed to build order machine", err)
		}

		desc = machine.Describe()
	} else {
		def, err = statemachine.LoadDefinition(cfg.source)
		if err != nil {
			return a.fail(ctx, "failed to load definition", err)
		}

		desc = def.Describe()
	}

	result := validator.Validate(desc)
	if cfg.strict {
		result = validator.ValidateStrict(desc)
	}

	if cfg.fix {
		if def == nil {
			_, _ = fmt.Fprintln(a.stderr, "-fix needs a definition file")

			return exitUsage
		}

		return a.fixDefinition(ctx, def, result, cfg.strict)
	}

	if result.HasErrors() || result.HasWarnings() {
		_, _ = fmt.Fprint(a.stderr, result.String())
	}

	if result.HasErrors() {
		return exitFailure
	}

	opts := visualizer.DefaultOptions().
		WithDirection(cfg.direction).
		WithTheme(cfg.theme).
		WithShowHooks(!cfg.noHooks).
		WithShowGuards(!cfg.noGuards).
		WithMarkCurrent(cfg.markCurrent).
		WithHighlightPath(splitList(cfg.highlight))

	diagram, err := visualizer.GenerateMermaidWithOptions(desc, opts)
	if err != nil {
		return a.fail(ctx, "failed to generate diagram", err)
	}

	if cfg.svg != "" {
		err = a.renderer.Render(ctx, diagram, cfg.svg)
		if err != nil {
			return a.fail(ctx, "failed to render diagram", err)
		}

		logger.Get(ctx).Info("Rendered diagram", "output", cfg.svg, "machine", desc.Name)

		return exitOK
	}

	_, _ = fmt.Fprint(a.stdout, diagram)

	return exitOK
}

// fixDefinition applies each suggested fix on its own so one failing fix does
// not block the rest, then prints the resulting YAML.
func (a *app) fixDefinition(
	ctx context.Context, def *statemachine.Definition, result validator.ValidationResult, strict bool,
) int {
	log := logger.Get(ctx)

	for _, fix := range result.Fixes() {
		err := validator.ApplyFixes(def, []*validator.Fix{fix})
		if err != nil {
			log.Warn("Skipping fix", "fix", fix.Description, "error", err)

			continue
		}

		log.Info("Applied fix", "fix", fix.Description)
	}

	remaining := validator.ValidateDefinition(def, strict)
	if remaining.HasErrors() || remaining.HasWarnings() {
		_, _ = fmt.Fprint(a.stderr, remaining.String())
	}

	data, err := def.Marshal()
	if err != nil {
		return a.fail(ctx, "failed to write definition", err)
	}

	_, _ = a.stdout.Write(data)

	if remaining.HasErrors() {
		return exitFailure
	}

	return exitOK
}

func (a *app) runInteractive(ctx context.Context) int {
	svc, err := a.newService(ctx)
	if err != nil {
		return a.fail(ctx, "failed to start order service", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Get(ctx).Warn("failed to close order service", "error", err)
		}
	}()

	session := &session{
		svc:      svc,
		prompter: a.prompter,
		out:      a.stdout,
		terminal: a.terminal,
	}

	err = session.run(ctx)
	if err != nil {
		return a.fail(ctx, "session failed", err)
	}

	return exitOK
}

func (a *app) fail(ctx context.Context, msg string, err error) int {
	logger.Get(ctx).Error(msg, "error", err)
	_, _ = fmt.Fprintf(a.stderr, "%s: %v\n", msg, err)

	return exitFailure
}

func splitList(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
