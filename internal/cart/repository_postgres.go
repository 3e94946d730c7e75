package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Open(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx,
		`SELECT cart_id, user_id, status, created_at, updated_at
         FROM carts
         WHERE user_id = $1 AND status = $2`,
		userID, StatusOpen,
	).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select open cart: %w", err)
	}

	items, err := r.items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	for {
		if c, err := r.Open(ctx, userID); err != nil || c != nil {
			return c, err
		}

		now := time.Now().UTC()
		c := Cart{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    StatusOpen,
			Items:     []Item{},
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err := r.db.ExecContext(ctx,
			`INSERT INTO carts (cart_id, user_id, status, created_at, updated_at)
             VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.UserID, c.Status, c.CreatedAt, c.UpdatedAt,
		)
		if err == nil {
			return &c, nil
		}

		// a concurrent request may have created the OPEN cart first; the
		// partial unique index on (user_id) WHERE status='OPEN' rejects the
		// second insert. The winner's cart can itself be cleared or checked
		// out before we re-read it, so go around again: the next iteration
		// either finds an OPEN cart or inserts a fresh one.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		return nil, fmt.Errorf("insert cart: %w", err)
	}
}

func (r *PostgresRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert item: %w", err)
	}
	defer tx.Rollback()

	if quantity <= 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, quantity)
             VALUES ($1, $2, $3)
             ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
			cartID, productID, quantity,
		)
	}
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET updated_at = $1 WHERE cart_id = $2`,
		time.Now().UTC(), cartID,
	)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	// cart_items go with the cart via ON DELETE CASCADE
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM carts WHERE user_id = $1 AND status = $2`,
		userID, StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// MarkOrdered flips an OPEN cart to ORDERED inside the caller's transaction.
// It is only invoked by the checkout orchestrator, in the same transaction
// that creates the order.
func (r *PostgresRepository) MarkOrdered(ctx context.Context, tx *sql.Tx, cartID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET status = $1, updated_at = $2 WHERE cart_id = $3 AND status = $4`,
		StatusOrdered, time.Now().UTC(), cartID, StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("mark cart ordered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) items(ctx context.Context, cartID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
