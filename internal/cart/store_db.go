package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

type PostgresCountStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCountStore(pool *pgxpool.Pool) *PostgresCountStore {
	return &PostgresCountStore{pool: pool}
}

func (s *PostgresCountStore) Set(ctx context.Context, customerID string, n int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO cart_counts (customer_id, item_count, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (customer_id) DO UPDATE
		SET item_count = EXCLUDED.item_count, updated_at = now()
	`, customerID, n)
	return err
}

func (s *PostgresCountStore) Get(ctx context.Context, customerID string) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT item_count FROM cart_counts WHERE customer_id = $1
	`, customerID).Scan(&n)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
