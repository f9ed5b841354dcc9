// Package orders runs an e-commerce order workflow on top of the state machine
// engine: orders move from payment through shipping, with every successful
// transition persisted alongside a history entry.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/bgworker"
	"github.com/amp-labs/amp-fsm/closer"
	"github.com/amp-labs/amp-fsm/hashing"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/retry"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	maxOrderNumberAttempts = 10
	maxStaleAttempts       = 3
)

var (
	// ErrInvalidOrder is returned when a new order lacks an email or a positive amount.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidPage is returned for non-positive page numbers or sizes.
	ErrInvalidPage = errors.New("invalid page")
)

// CreateOrderRequest describes a new order.
type CreateOrderRequest struct {
	CustomerEmail string
	AmountCents   int64
}

// TransitionCommand asks for one order to move to Target.
type TransitionCommand struct {
	OrderID int
	Target  OrderState
	Notes   string
}

// BatchResult pairs a command from TransitionBatch with its outcome.
type BatchResult struct {
	Command TransitionCommand
	Result  statemachine.TransitionResult[OrderState]
	Err     error
}

// Page is one page of ListOrders.
type Page struct {
	Orders     []Summary
	TotalCount int
	Page       int
	PageSize   int
}

// Service exposes the order workflow. Each transition builds a fresh machine
// over a copy of the stored order; the copy is saved only on success.
type Service struct {
	repo    Repository
	factory *Factory
	pool    pond.Pool
	clock   clockwork.Clock
	retries []retry.Option
	closer  *closer.Closer

	rngMu sync.Mutex
	rng   *rand.Rand
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock sets the clock used for timestamps and order numbers.
func WithServiceClock(clock clockwork.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithPool sets the pool TransitionBatch runs on. The caller keeps ownership.
func WithPool(pool pond.Pool) ServiceOption {
	return func(s *Service) {
		s.pool = pool
	}
}

// WithRetryOptions adjusts how Transition retries after losing a race with
// another writer. The options apply on top of the defaults.
func WithRetryOptions(opts ...retry.Option) ServiceOption {
	return func(s *Service) {
		s.retries = append(s.retries, opts...)
	}
}

// NewService returns a service over repo. Without WithPool it creates a
// pool sized by bgworker.LoadConfig; release it with Close.
func NewService(repo Repository, factory *Factory, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		repo:    repo,
		factory: factory,
		clock:   clockwork.NewRealClock(),
		closer:  closer.New(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), //nolint:gosec // order numbers only
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.pool == nil {
		cfg, err := bgworker.LoadConfig()
		if err != nil {
			return nil, err
		}

		pool := bgworker.NewPool(cfg)
		s.pool = pool
		s.closer.Add(closer.Func(func() error {
			pool.StopAndWait()

			return nil
		}))
	}

	return s, nil
}

// Close releases what the service created, waiting for queued batches to
// finish. A pool passed with WithPool is left running.
func (s *Service) Close() error {
	return s.closer.Close()
}

// States returns the names of every order state.
func (s *Service) States() []string {
	states := AllOrderStates()
	names := make([]string, len(states))

	for i, state := range states {
		names[i] = state.String()
	}

	return names
}

// CreateOrder stores a Pending order with a generated ORD-YYYYMMDD-NNNN number.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: customer email %q", ErrInvalidOrder, req.CustomerEmail)
	}

	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}

	now := s.clock.Now().UTC()

	for range maxOrderNumberAttempts {
		order, err := s.repo.Create(ctx, &Order{
			Number:        s.orderNumber(now),
			CustomerEmail: email,
			AmountCents:   req.AmountCents,
			State:         Pending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if errors.Is(err, ErrDuplicateOrderNumber) {
			continue
		}

		if err != nil {
			return nil, logger.AnnotateError(err, "customer", hashEmail(email))
		}

		logger.Get(ctx).Info("Created order",
			"order_number", order.Number,
			"customer", hashEmail(order.CustomerEmail))

		return order, nil
	}

	return nil, fmt.Errorf("%w: no free order number for %s", ErrDuplicateOrderNumber, now.Format("20060102"))
}

func (s *Service) orderNumber(now time.Time) string {
	s.rngMu.Lock()
	n := 1000 + s.rng.IntN(9000)
	s.rngMu.Unlock()

	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), n)
}

func (s *Service) GetOrder(ctx context.Context, id int) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetHistory returns an order's transitions, oldest first.
func (s *Service) GetHistory(ctx context.Context, id int) ([]HistoryEntry, error) {
	return s.repo.History(ctx, id)
}

// ListOrders returns a 1-based page of orders, newest first, each with the
// states it may move to next.
func (s *Service) ListOrders(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 || pageSize < 1 {
		return Page{}, fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, page, pageSize)
	}

	found, total, err := s.repo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, err
	}

	summaries := make([]Summary, 0, len(found))

	for _, order := range found {
		machine, err := s.factory.Create(order, statemachine.WithTracing(false), statemachine.WithMetrics(false))
		if err != nil {
			return Page{}, logger.AnnotateError(err, "order_id", order.ID)
		}

		summaries = append(summaries, Summary{
			Order:              *order,
			AllowedTransitions: machine.AllowedTransitions(order.State),
		})
	}

	return Page{Orders: summaries, TotalCount: total, Page: page, PageSize: pageSize}, nil
}

// Transition moves one order. Rejections and hook failures come back in the
// result with the stored order untouched; the error is for lookups and
// persistence. When another writer moved the order first, the transition is
// evaluated again against the fresh order, hooks included.
func (s *Service) Transition(
	ctx context.Context, cmd TransitionCommand,
) (statemachine.TransitionResult[OrderState], error) {
	return retry.DoValue(ctx, func(ctx context.Context) (statemachine.TransitionResult[OrderState], error) {
		if attempt := retry.Attempt(ctx); attempt > 0 {
			logger.Get(ctx).Debug("Retrying stale order transition", "order_id", cmd.OrderID, "attempt", attempt)
		}

		return s.transition(ctx, cmd)
	}, s.retryOptions()...)
}

func (s *Service) retryOptions() []retry.Option {
	opts := []retry.Option{
		retry.WithAttempts(maxStaleAttempts),
		retry.WithBackoff(retry.ExpBackoff{Base: 10 * time.Millisecond, Max: 100 * time.Millisecond, Factor: 2}),
		retry.WithClock(s.clock),
		retry.WithRetryIf(func(err error) bool { return errors.Is(err, ErrStaleOrder) }),
	}

	return append(opts, s.retries...)
}

func (s *Service) transition(
	ctx context.Context, cmd TransitionCommand,
) (statemachine.TransitionResult[OrderState], error) {
	var zero statemachine.TransitionResult[OrderState]

	order, err := s.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		return zero, err
	}

	ctx = logger.With(ctx, "order_number", order.Number, "order_id", order.ID)
	log := logger.Get(ctx)

	machine, err := s.factory.Create(order, statemachine.WithLogger(statemachine.NewSlogLogger(log)))
	if err != nil {
		return zero, logger.AnnotateError(err, "order_id", order.ID)
	}

	result := machine.TransitionTo(ctx, cmd.Target)
	if !result.Success {
		log.Info("Order transition failed",
			"target", cmd.Target.String(),
			"error", result.Error)

		return result, nil
	}

	if result.PreviousState == result.CurrentState {
		return result, nil
	}

	order.State = result.CurrentState
	order.UpdatedAt = s.clock.Now().UTC()

	entry := HistoryEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		From:      result.PreviousState,
		To:        result.CurrentState,
		Timestamp: order.UpdatedAt,
		Duration:  result.Duration,
		Notes:     cmd.Notes,
	}

	err = s.repo.SaveTransition(ctx, order, entry)
	if err != nil {
		return zero, logger.AnnotateError(err,
			"order_id", order.ID,
			"from_state", entry.From.String(),
			"to_state", entry.To.String())
	}

	log.Info("Order transitioned",
		"from_state", entry.From.String(),
		"to_state", entry.To.String(),
		"customer", hashEmail(order.CustomerEmail))

	return result, nil
}

// TransitionBatch runs commands concurrently on the service's pool. Commands
// for the same order run one after another in the order given. Results are
// returned in input order. Commands that never ran because ctx ended carry
// the context error and a cancelled result.
func (s *Service) TransitionBatch(ctx context.Context, cmds []TransitionCommand) ([]BatchResult, error) {
	results := make([]BatchResult, len(cmds))
	ran := make([]bool, len(cmds))

	byOrder := make(map[int][]int)
	orderIDs := make([]int, 0)

	for i, cmd := range cmds {
		results[i].Command = cmd

		if _, seen := byOrder[cmd.OrderID]; !seen {
			orderIDs = append(orderIDs, cmd.OrderID)
		}

		byOrder[cmd.OrderID] = append(byOrder[cmd.OrderID], i)
	}

	tasks := make([]func(context.Context), 0, len(orderIDs))

	for _, id := range orderIDs {
		indexes := byOrder[id]

		tasks = append(tasks, func(ctx context.Context) {
			for _, i := range indexes {
				if ctx.Err() != nil {
					return
				}

				ran[i] = true
				results[i].Result, results[i].Err = s.Transition(ctx, results[i].Command)
			}
		})
	}

	err := bgworker.RunAll(ctx, s.pool, tasks...)

	for i := range results {
		if !ran[i] {
			results[i].Err = skippedError(ctx, err)
			results[i].Result = statemachine.TransitionResult[OrderState]{
				Error:     results[i].Err.Error(),
				Err:       results[i].Err,
				Cancelled: true,
				Timestamp: s.clock.Now().UTC(),
			}
		}
	}

	return results, err
}

func skippedError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		return err
	}

	return context.Canceled
}

// Seed stores the sample orders when the repository is empty.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	now := s.clock.Now().UTC()

	for _, order := range sampleOrders(now) {
		_, err := s.repo.Create(ctx, order)
		if err != nil {
			return logger.AnnotateError(err, "order_number", order.Number)
		}
	}

	logger.Get(ctx).Info("Seeded sample orders")

	return nil
}

func sampleOrders(now time.Time) []*Order {
	at := func(ago time.Duration) time.Time { return now.Add(-ago) }

	return []*Order{
		{
			Number:        "ORD-20241201-1001",
			CustomerEmail: "john.doe@example.com",
			AmountCents:   9999,
			State:         Pending,
			CreatedAt:     at(2 * time.Hour),
			UpdatedAt:     at(2 * time.Hour),
		},
		{
			Number:            "ORD-20241201-1002",
			CustomerEmail:     "jane.smith@example.com",
			AmountCents:       14950,
			State:             Confirmed,
			CreatedAt:         at(time.Hour),
			UpdatedAt:         at(time.Hour),
			PaymentProcessed:  true,
			InventoryReserved: true,
		},
		{
			Number:            "ORD-20241201-1003",
			CustomerEmail:     "bob.wilson@example.com",
			AmountCents:       7525,
			State:             Shipped,
			CreatedAt:         at(30 * time.Minute),
			UpdatedAt:         at(30 * time.Minute),
			PaymentProcessed:  true,
			InventoryReserved: true,
			Shipped:           true,
		},
		{
			Number:         "ORD-20241201-1004",
			CustomerEmail:  "alice.brown@example.com",
			AmountCents:    19999,
			State:          PaymentFailed,
			CreatedAt:      at(15 * time.Minute),
			UpdatedAt:      at(15 * time.Minute),
			PaymentRetries: 2,
		},
	}
}

// hashEmail keeps customer emails out of logs while letting entries be correlated.
func hashEmail(email string) string {
	digest, err := hashing.XXH3(hashing.HashableString(strings.ToLower(email)))
	if err != nil {
		return "unknown"
	}

	return digest
}
