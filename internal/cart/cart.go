package cart

import (
	"time"

	"github.com/wichananm65/cart-api-backend/internal/product"
)

type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusOrdered Status = "ORDERED"
)

// Item is a stored cart line: product id plus a quantity that is always >= 1
// while the row exists. Quantity zero removes the row instead.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the persisted aggregate. A user has at most one OPEN cart; it flips
// to ORDERED exactly once, during checkout, and never back.
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    Status    `json:"status"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EnrichedItem pairs a stored quantity with a live catalog snapshot. It is
// built on every read and never persisted.
type EnrichedItem struct {
	Product product.Product `json:"product"`
	Count   int             `json:"count"`
}

// EnrichedCart is the external view of a cart: items whose product could not
// be resolved by the catalog are absent from Items.
type EnrichedCart struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Status    Status         `json:"status"`
	Items     []EnrichedItem `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
