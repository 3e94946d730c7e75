package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("cart not found")

// Repository provides access to cart storage. Open returns nil when the user
// has no OPEN cart; GetOrCreate is safe under concurrent calls for the same
// user and always yields that user's single OPEN cart.
type Repository interface {
	Open(ctx context.Context, userID string) (*Cart, error)
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) error
	Clear(ctx context.Context, userID string) error
}

// InMemoryRepository is used for tests and local scenarios. It enforces the
// same single-OPEN-cart-per-user rule as the Postgres store, via a mutex
// instead of a uniqueness constraint.
type InMemoryRepository struct {
	mu         sync.RWMutex
	carts      map[string]*Cart  // cart id -> cart
	openByUser map[string]string // user id -> OPEN cart id
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		carts:      make(map[string]*Cart),
		openByUser: make(map[string]string),
	}
}

func (r *InMemoryRepository) Open(_ context.Context, userID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.openByUser[userID]
	if !ok {
		return nil, nil
	}
	return copyCart(r.carts[id]), nil
}

func (r *InMemoryRepository) GetOrCreate(_ context.Context, userID string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.openByUser[userID]; ok {
		return copyCart(r.carts[id]), nil
	}

	now := time.Now().UTC()
	c := &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusOpen,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.carts[c.ID] = c
	r.openByUser[userID] = c.ID
	return copyCart(c), nil
}

func (r *InMemoryRepository) UpsertItem(_ context.Context, cartID, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[cartID]
	if !ok {
		return ErrNotFound
	}

	idx := -1
	for i, it := range c.Items {
		if it.ProductID == productID {
			idx = i
			break
		}
	}

	switch {
	case quantity <= 0 && idx >= 0:
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	case quantity > 0 && idx >= 0:
		c.Items[idx].Quantity = quantity
	case quantity > 0:
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.openByUser[userID]; ok {
		delete(r.carts, id)
		delete(r.openByUser, userID)
	}
	return nil
}

// MarkOrdered flips an OPEN cart to ORDERED, mirroring the Postgres store's
// checkout-time behaviour.
func (r *InMemoryRepository) MarkOrdered(_ context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[cartID]
	if !ok || c.Status != StatusOpen {
		return ErrNotFound
	}
	c.Status = StatusOrdered
	c.UpdatedAt = time.Now().UTC()
	delete(r.openByUser, c.UserID)
	return nil
}

func copyCart(c *Cart) *Cart {
	out := *c
	out.Items = make([]Item, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}
