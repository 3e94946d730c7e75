package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, password, created_at FROM users WHERE user_id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, password, created_at FROM users WHERE name = $1`, name,
	).Scan(&u.ID, &u.Name, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user by name: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, name, password, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Password, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrNameExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}
