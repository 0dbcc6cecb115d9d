package pause

import (
	"context"
	"sync"
)

// InMemoryStore keeps the halt flag in process memory. Suitable for
// single-instance deployments and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	paused bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Get(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused, nil
}

func (s *InMemoryStore) Set(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}
