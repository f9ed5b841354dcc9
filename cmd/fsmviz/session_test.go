package main

import (
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter answers prompts from a fixed script. Select answers name
// the prefix of the item to choose. When the script runs out it quits.
type scriptedPrompter struct {
	t       *testing.T
	answers []string
	labels  []string
}

var _ cli.Prompter = (*scriptedPrompter)(nil)

func (p *scriptedPrompter) next(label string) (string, bool) {
	p.labels = append(p.labels, label)

	if len(p.answers) == 0 {
		return "", false
	}

	answer := p.answers[0]
	p.answers = p.answers[1:]

	return answer, true
}

func (p *scriptedPrompter) Select(label string, items []string) (int, error) {
	answer, ok := p.next(label)
	if !ok {
		return 0, cli.ErrQuit
	}

	for i, item := range items {
		if strings.HasPrefix(item, answer) {
			return i, nil
		}
	}

	p.t.Fatalf("no item starting with %q in %v", answer, items)

	return 0, nil
}

func (p *scriptedPrompter) Confirm(label string) (bool, error) {
	answer, ok := p.next(label)
	if !ok {
		return false, cli.ErrQuit
	}

	return answer == "y", nil
}

func (p *scriptedPrompter) Text(label string) (string, error) {
	answer, ok := p.next(label)
	if !ok {
		return "", cli.ErrQuit
	}

	return answer, nil
}

func TestInteractiveSession(t *testing.T) {
	t.Parallel()

	prompter := &scriptedPrompter{t: t, answers: []string{
		"ORD-20241201-1004", "ProcessingPayment", "retry after decline",
		"New order", "new@example.com", "1250",
		"New order", "new@example.com", "lots",
		"ORD-20241201-1003", "Back",
		"Quit",
	}}

	h := newHarness(prompter)

	require.Equal(t, exitOK, h.app.run(t.Context(), []string{"-interactive"}), h.stderr.String())

	out := h.stdout.String()
	assert.Contains(t, out, "Order workflow")
	assert.Contains(t, out, "ORD-20241201-1004: PaymentFailed -> ProcessingPayment")
	assert.Contains(t, out, "Created ORD-")
	assert.Contains(t, out, errInvalidAmount.Error())
	assert.Empty(t, prompter.answers)
	assert.Contains(t, prompter.labels, "Move ORD-20241201-1003 to")
}

func TestInteractiveSessionQuitsOnInterrupt(t *testing.T) {
	t.Parallel()

	h := newHarness(&scriptedPrompter{t: t})

	assert.Equal(t, exitOK, h.app.run(t.Context(), []string{"-interactive"}))
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$99.99", formatCents(9999))
	assert.Equal(t, "$0.05", formatCents(5))
}
