package cart

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func errNoRows() error { return sql.ErrNoRows }

func now() time.Time { return time.Now().UTC() }

func TestGetOrCreate_RaceFallsBackToRefetch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	// no OPEN cart yet
	mock.ExpectQuery("SELECT cart_id, user_id, status").WithArgs("u1", "OPEN").
		WillReturnError(errNoRows())

	// insert loses the race against a concurrent request
	mock.ExpectExec("INSERT INTO carts").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	// re-fetch returns the winner's cart
	cartRows := sqlmock.NewRows([]string{"cart_id", "user_id", "status", "created_at", "updated_at"}).
		AddRow("c-winner", "u1", "OPEN", now(), now())
	mock.ExpectQuery("SELECT cart_id, user_id, status").WithArgs("u1", "OPEN").
		WillReturnRows(cartRows)
	mock.ExpectQuery("SELECT product_id, quantity FROM cart_items").WithArgs("c-winner").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}))

	c, err := repo.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "c-winner" {
		t.Fatalf("expected the concurrently-created cart, got %q", c.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreate_RetriesInsertWhenWinnerVanishes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	// no OPEN cart yet
	mock.ExpectQuery("SELECT cart_id, user_id, status").WithArgs("u1", "OPEN").
		WillReturnError(errNoRows())

	// insert loses the race against a concurrent request
	mock.ExpectExec("INSERT INTO carts").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	// the winner's cart was cleared before we could re-read it
	mock.ExpectQuery("SELECT cart_id, user_id, status").WithArgs("u1", "OPEN").
		WillReturnError(errNoRows())

	// second attempt succeeds
	mock.ExpectExec("INSERT INTO carts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, err := repo.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected a cart, got nil")
	}
	if c.UserID != "u1" || c.Status != StatusOpen {
		t.Fatalf("unexpected cart: %+v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpsertItem_ZeroQuantityDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WithArgs("c1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE carts SET updated_at").WithArgs(sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpsertItem(context.Background(), "c1", "p1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpsertItem_PositiveQuantityUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cart_items").WithArgs("c1", "p1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE carts SET updated_at").WithArgs(sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpsertItem(context.Background(), "c1", "p1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkOrdered_FailsWhenNotOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE carts SET status").
		WithArgs("ORDERED", sqlmock.AnyArg(), "c1", "OPEN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.MarkOrdered(context.Background(), tx, "c1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for already-ordered cart, got %v", err)
	}
	tx.Rollback()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
