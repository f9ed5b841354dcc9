package visualizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrRendererNotFound is returned when the mermaid-cli binary is not on PATH.
	ErrRendererNotFound = errors.New("mermaid renderer not found")

	// ErrRenderFailed is returned when the renderer exits with a non-zero status.
	ErrRenderFailed = errors.New("mermaid render failed")
)

// Renderer turns diagrams into images by piping them to mermaid-cli (mmdc).
// The output format follows the output file's extension.
type Renderer struct {
	Binary string
	Args   []string
	Env    []string
}

// NewRenderer returns a renderer that runs mmdc from PATH.
func NewRenderer() Renderer {
	return Renderer{Binary: "mmdc"}
}

// Render writes the image for diagram to outputPath. Markdown fences around
// the diagram are removed before rendering.
func (r Renderer) Render(ctx context.Context, diagram, outputPath string) error {
	binary, err := exec.LookPath(r.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRendererNotFound, r.Binary, err)
	}

	args := append([]string{"-i", "-", "-o", outputPath}, r.Args...)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = strings.NewReader(StripFence(diagram))

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("run renderer", "cmd", strings.Join(cmd.Args, " "))

	err = cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: exit status %d: %s",
			ErrRenderFailed, exitErr.ExitCode(), strings.TrimSpace(output.String()))
	}

	return fmt.Errorf("failed to run %s: %w", r.Binary, err)
}

// StripFence removes a surrounding ```mermaid fence, if present.
func StripFence(diagram string) string {
	trimmed := strings.TrimSpace(diagram)
	if !strings.HasPrefix(trimmed, "```") {
		return diagram
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return diagram
	}

	return strings.Join(lines[1:len(lines)-1], "\n") + "\n"
}
