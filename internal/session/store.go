package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

func NewStore() Store {
	return NewMemStore()
}
