package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/build"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/orders"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/amp-labs/amp-fsm/statemachine/visualizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trafficLightWithIssues = `name: traffic-light
states:
  - name: Red
  - name: Green
  - name: Yellow
  - name: Orphan
transitions:
  - from: Red
    to: [Red, Green]
  - from: Green
    to: [Yellow]
  - from: Yellow
    to: [Red]
`

func TestMain(m *testing.M) {
	statemachine.SetDefinitionLoader(newEmbedLoader())
	os.Exit(m.Run())
}

type harness struct {
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(prompter cli.Prompter) *harness {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	return &harness{
		stdout: stdout,
		stderr: stderr,
		app: &app{
			stdout:   stdout,
			stderr:   stderr,
			prompter: prompter,
			terminal: cli.Terminal{Columns: 40},
			renderer: visualizer.NewRenderer(),
			build:    &build.Info{Version: "v0.9.0", GoVersion: "go1.25.0"},
			newService: func(context.Context) (*orders.Service, error) {
				factory := orders.NewFactory(
					orders.WithLatencies(orders.Latencies{}),
					orders.WithPaymentProcessor(orders.PaymentProcessorFunc(
						func(context.Context, *orders.Order) (bool, error) { return true, nil })),
					orders.WithMachineOptions(statemachine.WithTracing(false)))

				return orders.NewService(orders.NewMemoryRepository(), factory)
			},
		},
	}
}

func writeDefinition(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{},
		{"a.yaml", "b.yaml"},
		{"-orders", "a.yaml"},
		{"-fix", "-svg", "out.svg", "a.yaml"},
		{"-bogus"},
	} {
		h := newHarness(nil)
		assert.Equal(t, exitUsage, h.app.run(t.Context(), args), args)
		assert.NotEmpty(t, h.stderr.String())
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	assert.Equal(t, exitOK, h.app.run(t.Context(), []string{"-version"}))
	assert.Equal(t, "fsmviz v0.9.0 (go1.25.0)\n", h.stdout.String())
}

func TestRunBuiltinDefinition(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	code := h.app.run(t.Context(), []string{"-direction", "LR", "-highlight", "Red, Green", "traffic-light"})
	require.Equal(t, exitOK, code, h.stderr.String())

	out := h.stdout.String()
	assert.True(t, strings.HasPrefix(out, "```mermaid\nstateDiagram-v2\n"))
	assert.Contains(t, out, "direction LR")
	assert.Contains(t, out, "Red --> Green")
	assert.Contains(t, out, "class Red highlighted")
	assert.Empty(t, h.stderr.String())
}

func TestRunUnknownDefinition(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	assert.Equal(t, exitFailure, h.app.run(t.Context(), []string{"nope"}))
	assert.Contains(t, h.stderr.String(), "failed to load definition")
	assert.Contains(t, h.stderr.String(), "traffic-light")
}

func TestRunOrders(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	require.Equal(t, exitOK, h.app.run(t.Context(), []string{"-orders"}))
	assert.Contains(t, h.stdout.String(), "ProcessingPayment --> Confirmed")
	assert.Contains(t, h.stderr.String(), "DEAD_END_STATE")

	strict := newHarness(nil)

	assert.Equal(t, exitFailure, strict.app.run(t.Context(), []string{"-orders", "-strict"}))
	assert.Empty(t, strict.stdout.String())
}

func TestRunRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	code := h.app.run(t.Context(), []string{writeDefinition(t, trafficLightWithIssues)})
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, h.stderr.String(), "✗ Definition has 1 error(s)")
	assert.Contains(t, h.stderr.String(), "Orphan")
	assert.Empty(t, h.stdout.String())
}

func TestRunFix(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	code := h.app.run(t.Context(), []string{"-fix", writeDefinition(t, trafficLightWithIssues)})
	require.Equal(t, exitOK, code, h.stderr.String())

	fixed, err := statemachine.LoadDefinitionFromBytes(h.stdout.Bytes())
	require.NoError(t, err)

	names := make([]string, 0, len(fixed.States))
	for _, state := range fixed.States {
		names = append(names, state.Name)
	}

	assert.Equal(t, []string{"Red", "Green", "Yellow"}, names)
	assert.Equal(t, []string{"Green"}, fixed.Describe().Targets("Red"))
}

func TestRunFixNeedsDefinition(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)

	assert.Equal(t, exitUsage, h.app.run(t.Context(), []string{"-orders", "-fix"}))
}

func TestRunSVG(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "fake-mmdc")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat > \"$4\"\n"), 0o755)) //nolint:gosec

	out := filepath.Join(t.TempDir(), "light.svg")

	h := newHarness(nil)
	h.app.renderer = visualizer.Renderer{Binary: script}

	require.Equal(t, exitOK, h.app.run(t.Context(), []string{"-svg", out, "traffic-light"}), h.stderr.String())
	assert.Empty(t, h.stdout.String())

	rendered, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(rendered), "stateDiagram-v2"))
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"A", "B"}, splitList(" A,, B ,"))
}

func TestEmbedLoader(t *testing.T) {
	t.Parallel()

	loader := newEmbedLoader()
	assert.ElementsMatch(t, []string{"orders", "traffic-light"}, loader.ListAvailable())

	def, err := statemachine.LoadDefinition("orders")
	require.NoError(t, err)
	assert.Len(t, def.States, 8)

	_, err = loader.LoadByName("missing")
	require.Error(t, err)
}
