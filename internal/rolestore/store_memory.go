package rolestore

import (
	"context"
	"sync"

	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// InMemoryStore keeps role membership in process memory. It intentionally
// favors clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	bindings map[id.Role]map[id.PrincipalID]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{bindings: make(map[id.Role]map[id.PrincipalID]struct{})}
}

func (s *InMemoryStore) Grant(_ context.Context, role id.Role, principal id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.bindings[role]
	if !ok {
		members = make(map[id.PrincipalID]struct{})
		s.bindings[role] = members
	}
	members[principal] = struct{}{}
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, role id.Role, principal id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.bindings[role]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, held := members[principal]; !held {
		return sentinel.ErrNotFound
	}
	delete(members, principal)
	return nil
}

func (s *InMemoryStore) HasRole(_ context.Context, role id.Role, principal id.PrincipalID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, held := s.bindings[role][principal]
	return held, nil
}

func (s *InMemoryStore) ListPrincipals(_ context.Context, role id.Role) ([]id.PrincipalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.bindings[role]
	out := make([]id.PrincipalID, 0, len(members))
	for principal := range members {
		out = append(out, principal)
	}
	return out, nil
}
