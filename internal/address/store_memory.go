package address

import (
	"context"
	"sync"
)

type MemCacheStore struct {
	mu sync.RWMutex
	m  map[string][]Address
}

func NewMemCacheStore() *MemCacheStore {
	return &MemCacheStore{m: map[string][]Address{}}
}

func (s *MemCacheStore) Put(_ context.Context, customerID string, list []Address) error {
	cp := make([]Address, len(list))
	copy(cp, list)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[customerID] = cp
	return nil
}

func (s *MemCacheStore) Get(_ context.Context, customerID string) ([]Address, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.m[customerID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]Address, len(list))
	copy(cp, list)
	return cp, true, nil
}

func (s *MemCacheStore) Delete(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, customerID)
	return nil
}
