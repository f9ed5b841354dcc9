package orders

import (
	"errors"
	"fmt"
)

// OrderState is the lifecycle state of an order.
type OrderState int

const (
	Pending OrderState = iota
	ProcessingPayment
	PaymentFailed
	Confirmed
	Shipped
	Delivered
	Cancelled
	Refunded
)

var orderStateNames = [...]string{ //nolint:gochecknoglobals
	Pending:           "Pending",
	ProcessingPayment: "ProcessingPayment",
	PaymentFailed:     "PaymentFailed",
	Confirmed:         "Confirmed",
	Shipped:           "Shipped",
	Delivered:         "Delivered",
	Cancelled:         "Cancelled",
	Refunded:          "Refunded",
}

// ErrUnknownOrderState is returned when parsing a name that is not an OrderState.
var ErrUnknownOrderState = errors.New("unknown order state")

// AllOrderStates returns every state in declaration order.
func AllOrderStates() []OrderState {
	states := make([]OrderState, len(orderStateNames))
	for i := range orderStateNames {
		states[i] = OrderState(i)
	}

	return states
}

func (s OrderState) String() string {
	if s < 0 || int(s) >= len(orderStateNames) {
		return fmt.Sprintf("OrderState(%d)", int(s))
	}

	return orderStateNames[s]
}

// ParseOrderState returns the state with the given name.
func ParseOrderState(name string) (OrderState, error) {
	for i, candidate := range orderStateNames {
		if candidate == name {
			return OrderState(i), nil
		}
	}

	return Pending, fmt.Errorf("%w: %q", ErrUnknownOrderState, name)
}

func (s OrderState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(orderStateNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrderState, int(s))
	}

	return []byte(s.String()), nil
}

func (s *OrderState) UnmarshalText(text []byte) error {
	state, err := ParseOrderState(string(text))
	if err != nil {
		return err
	}

	*s = state

	return nil
}
