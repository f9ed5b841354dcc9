package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrOrderNotFound is returned when no order matches the requested id or number.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateOrderNumber is returned when an order number is already taken.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrStaleOrder is returned when an order changed state between load and save.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// Repository stores orders and their transition history.
type Repository interface {
	// Create stores a new order and assigns its ID.
	Create(ctx context.Context, order *Order) (*Order, error)
	Get(ctx context.Context, id int) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// List returns a page of orders, newest first, and the total count.
	List(ctx context.Context, offset, limit int) ([]*Order, int, error)
	Count(ctx context.Context) (int, error)
	// SaveTransition stores the order and appends entry, provided the stored
	// order is still in entry.From.
	SaveTransition(ctx context.Context, order *Order, entry HistoryEntry) error
	// History returns an order's entries, oldest first.
	History(ctx context.Context, orderID int) ([]HistoryEntry, error)
}

// MemoryRepository is a Repository backed by maps. Orders are copied on the
// way in and out so callers cannot mutate stored state.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int
	orders   map[int]*Order
	byNumber map[string]int
	history  map[int][]HistoryEntry
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:   1,
		orders:   make(map[int]*Order),
		byNumber: make(map[string]int),
		history:  make(map[int][]HistoryEntry),
	}
}

func (r *MemoryRepository) Create(_ context.Context, order *Order) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byNumber[order.Number]; taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.Number)
	}

	stored := *order
	stored.ID = r.nextID
	r.nextID++

	r.orders[stored.ID] = &stored
	r.byNumber[stored.Number] = stored.ID

	out := stored

	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}

	out := *order

	return &out, nil
}

func (r *MemoryRepository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	r.mu.RLock()
	id, ok := r.byNumber[number]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
	}

	return r.Get(ctx, id)
}

func (r *MemoryRepository) List(_ context.Context, offset, limit int) ([]*Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Order, 0, len(r.orders))
	for _, order := range r.orders {
		all = append(all, order)
	}

	slices.SortFunc(all, func(a, b *Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	total := len(all)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)

	page := make([]*Order, 0, end-start)
	for _, order := range all[start:end] {
		out := *order
		page = append(page, &out)
	}

	return page, total, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.orders), nil
}

func (r *MemoryRepository) SaveTransition(_ context.Context, order *Order, entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, order.ID)
	}

	if stored.State != entry.From {
		return fmt.Errorf("%w: expected %s, found %s", ErrStaleOrder, entry.From, stored.State)
	}

	updated := *order
	r.orders[order.ID] = &updated
	r.history[order.ID] = append(r.history[order.ID], entry)

	return nil
}

func (r *MemoryRepository) History(_ context.Context, orderID int) ([]HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}

	history := slices.Clone(r.history[orderID])
	slices.SortStableFunc(history, func(a, b HistoryEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return history, nil
}
