package orders

import (
	"context"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/jonboulle/clockwork"
)

// MachineName labels order machines in logs, spans and metrics.
const MachineName = "orders"

// Machine is a state machine over a single order.
type Machine = statemachine.Machine[OrderState, *Order]

type stateConfig = statemachine.StateConfig[OrderState, *Order]

// Latencies are the simulated durations of the workflow's side effects.
type Latencies struct {
	Payment   time.Duration
	Inventory time.Duration
	Shipping  time.Duration
}

// DefaultLatencies returns the latencies of a demo deployment.
func DefaultLatencies() Latencies {
	return Latencies{
		Payment:   500 * time.Millisecond,
		Inventory: 300 * time.Millisecond,
		Shipping:  100 * time.Millisecond,
	}
}

// Factory builds order machines with the order workflow's graph, hooks and guards.
type Factory struct {
	payments  PaymentProcessor
	latencies Latencies
	clock     clockwork.Clock
	options   []statemachine.Option
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithPaymentProcessor replaces the default random payment processor.
func WithPaymentProcessor(payments PaymentProcessor) FactoryOption {
	return func(f *Factory) {
		f.payments = payments
	}
}

// WithLatencies sets the simulated side-effect durations.
func WithLatencies(latencies Latencies) FactoryOption {
	return func(f *Factory) {
		f.latencies = latencies
	}
}

// WithClock sets the clock used for simulated latencies.
func WithClock(clock clockwork.Clock) FactoryOption {
	return func(f *Factory) {
		f.clock = clock
	}
}

// WithMachineOptions adds options to every machine the factory creates.
func WithMachineOptions(opts ...statemachine.Option) FactoryOption {
	return func(f *Factory) {
		f.options = append(f.options, opts...)
	}
}

// NewFactory returns a factory that declines 20% of charges and uses the
// default latencies unless configured otherwise.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		payments:  NewRandomPaymentProcessor(0.2, uint64(time.Now().UnixNano())), //nolint:gosec // seed only
		latencies: DefaultLatencies(),
		clock:     clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create returns a machine positioned at the order's current state. Extra
// options are applied after the factory's own.
func (f *Factory) Create(order *Order, extra ...statemachine.Option) (*Machine, error) {
	opts := make([]statemachine.Option, 0, len(f.options)+len(extra)+1)
	opts = append(opts, statemachine.WithName(MachineName))
	opts = append(opts, f.options...)
	opts = append(opts, extra...)

	machine, err := statemachine.New(AllOrderStates(), order.State, order, opts...)
	if err != nil {
		return nil, err
	}

	machine.
		Configure(ProcessingPayment, func(cfg *stateConfig) {
			cfg.WithDisplayName("Processing Payment").
				OnEnter(f.chargePayment).
				Guard(paymentGuard)
		}).
		Configure(PaymentFailed, func(cfg *stateConfig) {
			cfg.WithDisplayName("Payment Failed")
		}).
		Configure(Confirmed, func(cfg *stateConfig) {
			cfg.OnEnter(func(ctx context.Context, order *Order) error {
				if err := f.sleep(ctx, f.latencies.Inventory); err != nil {
					return err
				}

				order.InventoryReserved = true

				return nil
			})
		}).
		Configure(Shipped, func(cfg *stateConfig) {
			cfg.OnEnter(func(ctx context.Context, order *Order) error {
				if err := f.sleep(ctx, f.latencies.Shipping); err != nil {
					return err
				}

				order.Shipped = true

				return nil
			})
		})

	machine.
		AllowTransitions(Pending, ProcessingPayment, Cancelled).
		AllowTransitions(ProcessingPayment, Confirmed, PaymentFailed, Cancelled).
		AllowTransitions(PaymentFailed, ProcessingPayment, Cancelled).
		AllowTransitions(Confirmed, Shipped, Cancelled).
		AllowTransitions(Shipped, Delivered, Cancelled).
		AllowTransitions(Delivered, Refunded).
		AllowTransitions(Cancelled, Refunded)

	return machine, nil
}

func (f *Factory) chargePayment(ctx context.Context, order *Order) error {
	if err := f.sleep(ctx, f.latencies.Payment); err != nil {
		return err
	}

	paid, err := f.payments.Charge(ctx, order)
	if err != nil {
		return err
	}

	if paid || order.PaymentRetries >= MaxPaymentRetries {
		order.PaymentProcessed = true
	} else {
		order.PaymentRetries++
	}

	return nil
}

// paymentGuard routes an order out of ProcessingPayment by the charge outcome.
func paymentGuard(_ context.Context, target OrderState, order *Order) (bool, error) {
	switch target { //nolint:exhaustive
	case Confirmed:
		return order.PaymentProcessed, nil
	case PaymentFailed:
		return !order.PaymentProcessed, nil
	case Cancelled:
		return true, nil
	default:
		return false, nil
	}
}

func (f *Factory) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := f.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
