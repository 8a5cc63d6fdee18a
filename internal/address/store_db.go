package address

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

type PostgresCacheStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCacheStore(pool *pgxpool.Pool) *PostgresCacheStore {
	return &PostgresCacheStore{pool: pool}
}

func (s *PostgresCacheStore) Put(ctx context.Context, customerID string, list []Address) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	payload, err := json.Marshal(list)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO address_cache (customer_id, addresses, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (customer_id) DO UPDATE
		SET addresses = EXCLUDED.addresses, updated_at = now()
	`, customerID, payload)
	return err
}

func (s *PostgresCacheStore) Get(ctx context.Context, customerID string) ([]Address, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT addresses FROM address_cache WHERE customer_id = $1
	`, customerID).Scan(&payload)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var list []Address
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (s *PostgresCacheStore) Delete(ctx context.Context, customerID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `DELETE FROM address_cache WHERE customer_id = $1`, customerID)
	return err
}
