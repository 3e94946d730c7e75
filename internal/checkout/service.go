package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wichananm65/cart-api-backend/internal/cart"
	"github.com/wichananm65/cart-api-backend/internal/order"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrFailed    = errors.New("checkout failed")
)

// CartReader reads the user's enriched OPEN cart; nil means no cart.
type CartReader interface {
	Open(ctx context.Context, userID string) (*cart.EnrichedCart, error)
}

// OrderCreator persists a new order, its snapshot and initial history inside
// the supplied transaction.
type OrderCreator interface {
	Create(ctx context.Context, tx *sql.Tx, o order.Order) (order.Order, error)
}

// CartOrderer flips the originating cart to ORDERED inside the same
// transaction.
type CartOrderer interface {
	MarkOrdered(ctx context.Context, tx *sql.Tx, cartID string) error
}

// Service is the transactional bridge from cart to order: order creation and
// the cart status flip share one transaction, so either both happen or
// neither does.
type Service struct {
	db     *sql.DB
	carts  CartReader
	orders OrderCreator
	marker CartOrderer
}

func NewService(db *sql.DB, carts CartReader, orders OrderCreator, marker CartOrderer) *Service {
	return &Service{db: db, carts: carts, orders: orders, marker: marker}
}

// Checkout converts the user's OPEN cart into an order. The total is computed
// once, from the enriched items, and frozen onto the order; later catalog
// price changes never affect it. On any failure the cart stays OPEN and
// checkoutable again.
func (s *Service) Checkout(ctx context.Context, userID string, address order.Address) (order.Order, error) {
	c, err := s.carts.Open(ctx, userID)
	if err != nil {
		return order.Order{}, fmt.Errorf("read cart: %w", err)
	}
	if c == nil || len(c.Items) == 0 {
		return order.Order{}, ErrEmptyCart
	}

	var total float64
	items := make([]order.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		total += it.Product.Price * float64(it.Count)
		items = append(items, order.LineItem{ProductID: it.Product.ID, Count: it.Count})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	defer tx.Rollback()

	created, err := s.orders.Create(ctx, tx, order.Order{
		UserID:  userID,
		CartID:  c.ID,
		Items:   items,
		Address: address,
		Total:   total,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("cart_id", c.ID).Msg("order creation failed, rolling back")
		return order.Order{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	if err := s.marker.MarkOrdered(ctx, tx, c.ID); err != nil {
		log.Error().Err(err).Str("cart_id", c.ID).Msg("cart status flip failed, rolling back")
		return order.Order{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return order.Order{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	log.Info().Str("order_id", created.ID).Str("user_id", userID).Float64("total", total).Msg("checkout completed")
	return created, nil
}
