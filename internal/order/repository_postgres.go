package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create writes the order row, its immutable line-item snapshot and the
// initial OPEN history entry inside the caller's transaction. The checkout
// orchestrator owns that transaction, so a partial order (row without
// history, or vice versa) is never observable.
func (r *PostgresRepository) Create(ctx context.Context, tx *sql.Tx, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.Status = StatusOpen
	o.CreatedAt = now

	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return Order{}, fmt.Errorf("marshal address: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, cart_id, address, total, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.UserID, o.CartID, addressJSON, o.Total, o.Status, o.CreatedAt,
	)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			o.ID, item.ProductID, item.Count,
		)
		if err != nil {
			return Order{}, fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, comment, created_at)
         VALUES ($1, $2, $3, $4)`,
		o.ID, StatusOpen, initialComment, now,
	)
	if err != nil {
		return Order{}, fmt.Errorf("insert order history: %w", err)
	}

	o.StatusHistory = []HistoryEntry{{Status: StatusOpen, Comment: initialComment, Timestamp: now}}
	return o, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, orderID string) (*Order, error) {
	var (
		o           Order
		addressJSON []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, cart_id, address, total, status, created_at
         FROM orders WHERE order_id = $1`,
		orderID,
	).Scan(&o.ID, &o.UserID, &o.CartID, &addressJSON, &o.Total, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}

	items, err := r.itemsByOrder(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []LineItem{}
	}

	history, err := r.historyByOrder(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.StatusHistory = history[o.ID]

	return &o, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, user_id, cart_id, address, total, status, created_at
         FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders by user: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var (
			o           Order
			addressJSON []byte
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.CartID, &addressJSON, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		o.Items = []LineItem{}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	history, err := r.historyByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if its, ok := items[orders[i].ID]; ok {
			orders[i].Items = its
		}
		orders[i].StatusHistory = history[orders[i].ID]
	}
	return orders, nil
}

// AppendStatus updates the order's current status and appends one history
// entry in a single transaction. Prior entries are never rewritten.
func (r *PostgresRepository) AppendStatus(ctx context.Context, orderID string, status Status, comment string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append status: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE order_id = $2`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, comment, created_at)
         VALUES ($1, $2, $3, $4)`,
		orderID, status, comment, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append status: %w", err)
	}
	return nil
}

// Delete removes the order; items and history cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) itemsByOrder(ctx context.Context, orderIDs []string) (map[string][]LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity FROM order_items
         WHERE order_id = ANY($1) ORDER BY product_id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]LineItem)
	for rows.Next() {
		var (
			orderID string
			item    LineItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Count); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) historyByOrder(ctx context.Context, orderIDs []string) (map[string][]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, status, comment, created_at FROM order_status_history
         WHERE order_id = ANY($1) ORDER BY created_at ASC`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("select order history: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]HistoryEntry)
	for rows.Next() {
		var (
			orderID string
			entry   HistoryEntry
		)
		if err := rows.Scan(&orderID, &entry.Status, &entry.Comment, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		out[orderID] = append(out[orderID], entry)
	}
	return out, rows.Err()
}
