package cart

import (
	"context"
	"sync"
)

type MemCountStore struct {
	mu sync.RWMutex
	m  map[string]int
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{m: map[string]int{}}
}

func (s *MemCountStore) Set(_ context.Context, customerID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[customerID] = n
	return nil
}

func (s *MemCountStore) Get(_ context.Context, customerID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.m[customerID]
	return n, ok, nil
}
