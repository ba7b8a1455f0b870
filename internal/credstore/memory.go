package credstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and development. Values do
// not survive restarts; it must not be used where durability matters.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Save writes value for account, replacing any previous value.
func (s *MemoryStore) Save(ctx context.Context, account, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[account] = value
	return nil
}

// Load returns the value for account, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, account string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Delete removes the value for account.
func (s *MemoryStore) Delete(ctx context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, account)
	return nil
}
