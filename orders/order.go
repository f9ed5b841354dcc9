package orders

import (
	"time"

	"github.com/google/uuid"
)

// Order is the context an order machine operates on. Hooks mutate the
// workflow flags; the service persists State after a successful transition.
type Order struct {
	ID                int        `json:"id"`
	Number            string     `json:"orderNumber"`
	CustomerEmail     string     `json:"customerEmail"`
	AmountCents       int64      `json:"amountCents"`
	State             OrderState `json:"state"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	PaymentProcessed  bool       `json:"paymentProcessed"`
	InventoryReserved bool       `json:"inventoryReserved"`
	Shipped           bool       `json:"shipped"`
	PaymentRetries    int        `json:"paymentRetries"`
}

// HistoryEntry records one successful transition of an order.
type HistoryEntry struct {
	ID        uuid.UUID     `json:"id"`
	OrderID   int           `json:"orderId"`
	From      OrderState    `json:"fromState"`
	To        OrderState    `json:"toState"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Notes     string        `json:"notes,omitempty"`
}

// Summary is an order as listed, with the states it may move to next.
type Summary struct {
	Order

	AllowedTransitions []OrderState `json:"allowedTransitions"`
}
