package orders

import (
	"context"
	"math/rand/v2"
	"sync"
)

// MaxPaymentRetries is the number of failed charges after which payment is
// always accepted.
const MaxPaymentRetries = 3

// PaymentProcessor charges an order. It reports whether the charge went through.
type PaymentProcessor interface {
	Charge(ctx context.Context, order *Order) (bool, error)
}

// PaymentProcessorFunc adapts a function to PaymentProcessor.
type PaymentProcessorFunc func(ctx context.Context, order *Order) (bool, error)

func (f PaymentProcessorFunc) Charge(ctx context.Context, order *Order) (bool, error) {
	return f(ctx, order)
}

// RandomPaymentProcessor declines a fraction of charges at random.
type RandomPaymentProcessor struct {
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPaymentProcessor declines charges with probability failureRate,
// drawing from a generator seeded with seed.
func NewRandomPaymentProcessor(failureRate float64, seed uint64) *RandomPaymentProcessor {
	return &RandomPaymentProcessor{
		failureRate: failureRate,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation only
	}
}

func (p *RandomPaymentProcessor) Charge(_ context.Context, _ *Order) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rng.Float64() >= p.failureRate, nil
}
