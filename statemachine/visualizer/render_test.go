package visualizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-mmdc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec

	return path
}

func TestStripFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stateDiagram-v2\n    A --> B\n", StripFence("```mermaid\nstateDiagram-v2\n    A --> B\n```\n"))
	assert.Equal(t, "stateDiagram-v2\n", StripFence("stateDiagram-v2\n"))
	assert.Equal(t, "```mermaid\nunterminated", StripFence("```mermaid\nunterminated"))
}

func TestRendererPipesDiagram(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "jobs.svg")
	renderer := Renderer{Binary: writeScript(t, `cat > "$4"`)}

	diagram, err := GenerateMermaid(jobsDescription())
	require.NoError(t, err)

	require.NoError(t, renderer.Render(t.Context(), diagram, out))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, StripFence(diagram), string(written))
}

func TestRendererReportsFailure(t *testing.T) {
	t.Parallel()

	renderer := Renderer{Binary: writeScript(t, "echo 'parse error' >&2\nexit 3")}

	err := renderer.Render(t.Context(), "stateDiagram-v2\n", filepath.Join(t.TempDir(), "x.svg"))
	require.ErrorIs(t, err, ErrRenderFailed)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "parse error")
}

func TestRendererNotFound(t *testing.T) {
	t.Parallel()

	renderer := Renderer{Binary: "definitely-not-a-mermaid-binary"}

	err := renderer.Render(t.Context(), "stateDiagram-v2\n", "x.svg")
	require.ErrorIs(t, err, ErrRendererNotFound)
}
