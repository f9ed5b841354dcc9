package cli

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
)

// ErrQuit is returned when the user interrupts a prompt.
var ErrQuit = errors.New("quit")

// Prompter asks the user questions. Interactive commands depend on this
// interface so they can be driven by scripted answers.
type Prompter interface {
	// Select returns the index of the chosen item.
	Select(label string, items []string) (int, error)
	Confirm(label string) (bool, error)
	// Text returns free text, possibly empty.
	Text(label string) (string, error)
}

// TerminalPrompter prompts on a terminal with promptui.
type TerminalPrompter struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

var _ Prompter = TerminalPrompter{}

// NewTerminalPrompter prompts on stdin and stdout.
func NewTerminalPrompter() TerminalPrompter {
	return TerminalPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p TerminalPrompter) Select(label string, items []string) (int, error) {
	sel := &promptui.Select{
		Label:  label,
		Items:  items,
		Size:   min(max(len(items), 1), 10), //nolint:mnd
		Stdin:  p.In,
		Stdout: p.Out,
	}

	idx, _, err := sel.Run()

	return idx, translate(err)
}

func (p TerminalPrompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.In,
		Stdout:    p.Out,
	}

	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}

	if err != nil {
		return false, translate(err)
	}

	return true, nil
}

func (p TerminalPrompter) Text(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:  label,
		Stdin:  p.In,
		Stdout: p.Out,
	}

	text, err := prompt.Run()

	return text, translate(err)
}

func translate(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrQuit
	}

	return err
}
