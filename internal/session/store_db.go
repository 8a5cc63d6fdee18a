package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, sess Session) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var expires *time.Time
	if !sess.ExpiresAt.IsZero() {
		expires = &sess.ExpiresAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, customer_id, access_token, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    issued_at    = EXCLUDED.issued_at,
		    expires_at   = EXCLUDED.expires_at
	`, sess.ID, sess.CustomerID, sess.AccessToken, sess.IssuedAt, expires)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		sess    Session
		expires *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, access_token, issued_at, expires_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&sess.ID, &sess.CustomerID, &sess.AccessToken, &sess.IssuedAt, &expires)

	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	if expires != nil {
		sess.ExpiresAt = *expires
	}
	return sess, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
