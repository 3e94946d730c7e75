package order

import "time"

type Status string

// Known statuses. The lifecycle deliberately accepts any non-empty status
// string; these constants name the ones the system itself uses.
const (
	StatusOpen      Status = "OPEN"
	StatusApproved  Status = "APPROVED"
	StatusConfirmed Status = "CONFIRMED"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Address is the delivery address captured at checkout.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Comment   string `json:"comment"`
}

// LineItem is one row of the order's immutable snapshot, copied from the
// cart's enriched contents at checkout time.
type LineItem struct {
	ProductID string `json:"productId"`
	Count     int    `json:"count"`
}

// HistoryEntry is one row of the append-only status ledger. Entries are never
// edited or removed individually.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is created exactly once by checkout. Items and Total never change
// afterwards, even if the originating cart is later mutated or deleted.
type Order struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	CartID        string         `json:"cartId"`
	Items         []LineItem     `json:"items"`
	Address       Address        `json:"address"`
	Total         float64        `json:"total"`
	Status        Status         `json:"status"`
	StatusHistory []HistoryEntry `json:"statusHistory"`
	CreatedAt     time.Time      `json:"createdAt"`
}
