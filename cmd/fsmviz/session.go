package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/orders"
)

const sessionPageSize = 20

var errInvalidAmount = errors.New("amount must be a positive number of cents")

// session lets a user move orders through the workflow from a terminal.
type session struct {
	svc      *orders.Service
	prompter cli.Prompter
	out      io.Writer
	terminal cli.Terminal
}

func (s *session) run(ctx context.Context) error {
	err := s.svc.Seed(ctx)
	if err != nil {
		return err
	}

	s.printf("%s", s.terminal.Banner("Order workflow", cli.AlignCenter))

	for {
		done, err := s.step(ctx)
		if errors.Is(err, cli.ErrQuit) || (err == nil && done) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// step runs one menu round. It reports true when the user chose to quit.
func (s *session) step(ctx context.Context) (bool, error) {
	page, err := s.svc.ListOrders(ctx, 1, sessionPageSize)
	if err != nil {
		return false, err
	}

	items := make([]string, 0, len(page.Orders)+2)
	for _, order := range page.Orders {
		items = append(items, fmt.Sprintf("%s  %-18s %s", order.Number, order.State, formatCents(order.AmountCents)))
	}

	items = append(items, "New order", "Quit")

	choice, err := s.prompter.Select("Select an order", items)
	if err != nil {
		return false, err
	}

	switch {
	case choice == len(items)-1:
		return true, nil
	case choice == len(items)-2:
		return false, s.createOrder(ctx)
	case choice < 0 || choice >= len(page.Orders):
		return false, nil
	default:
		return false, s.transitionOrder(ctx, page.Orders[choice])
	}
}

func (s *session) createOrder(ctx context.Context) error {
	email, err := s.prompter.Text("Customer email")
	if err != nil {
		return err
	}

	amountText, err := s.prompter.Text("Amount in cents")
	if err != nil {
		return err
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(amountText), 10, 64)
	if err != nil || amount <= 0 {
		s.printf("%v\n", errInvalidAmount)

		return nil
	}

	order, err := s.svc.CreateOrder(ctx, orders.CreateOrderRequest{CustomerEmail: email, AmountCents: amount})
	if errors.Is(err, orders.ErrInvalidOrder) {
		s.printf("%v\n", err)

		return nil
	}

	if err != nil {
		return err
	}

	s.printf("Created %s\n", order.Number)

	return nil
}

func (s *session) transitionOrder(ctx context.Context, order orders.Summary) error {
	if len(order.AllowedTransitions) == 0 {
		s.printf("%s is %s and cannot move any further\n", order.Number, order.State)

		return nil
	}

	targets := make([]string, 0, len(order.AllowedTransitions)+1)
	for _, state := range order.AllowedTransitions {
		targets = append(targets, state.String())
	}

	targets = append(targets, "Back")

	choice, err := s.prompter.Select("Move "+order.Number+" to", targets)
	if err != nil {
		return err
	}

	if choice < 0 || choice >= len(order.AllowedTransitions) {
		return nil
	}

	notes, err := s.prompter.Text("Notes")
	if err != nil {
		return err
	}

	result, err := s.svc.Transition(ctx, orders.TransitionCommand{
		OrderID: order.ID,
		Target:  order.AllowedTransitions[choice],
		Notes:   notes,
	})
	if err != nil {
		return err
	}

	s.printf("%s", s.terminal.Divider())
	s.printf("%s: %s\n", order.Number, result)

	return nil
}

func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100) //nolint:mnd
}
