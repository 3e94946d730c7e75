package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("order not found")

// initialComment is recorded on the history entry written at creation.
const initialComment = "Order created"

// Repository defines the read and lifecycle operations of the order store.
// Creation is transactional and lives on the concrete Postgres repository,
// because it only ever happens inside the checkout transaction. The store is
// ownership-agnostic: filtering by user is the service's job.
type Repository interface {
	FindByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	AppendStatus(ctx context.Context, orderID string, status Status, comment string) error
	Delete(ctx context.Context, orderID string) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]*Order)}
}

// Create persists a new order with its snapshot and the initial OPEN history
// entry, mirroring what the Postgres repository does inside the checkout
// transaction.
func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.Status = StatusOpen
	o.CreatedAt = now
	o.StatusHistory = []HistoryEntry{{Status: StatusOpen, Comment: initialComment, Timestamp: now}}

	stored := o
	stored.Items = append([]LineItem(nil), o.Items...)
	stored.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	r.orders[o.ID] = &stored
	return o, nil
}

func (r *InMemoryRepository) FindByID(_ context.Context, orderID string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) AppendStatus(_ context.Context, orderID string, status Status, comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{
		Status:    status,
		Comment:   comment,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return ErrNotFound
	}
	delete(r.orders, orderID)
	return nil
}

func copyOrder(o *Order) *Order {
	out := *o
	out.Items = append([]LineItem(nil), o.Items...)
	out.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	return &out
}
