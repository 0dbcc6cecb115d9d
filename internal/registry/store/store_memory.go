package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"effigy/internal/registry/models"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

// InMemoryStore keeps the three metadata tables, the name-reservation set,
// and the counter in process memory. The tables are parallel maps keyed by
// record identifier and move in lockstep. It intentionally favors clarity
// over performance.
type InMemoryStore struct {
	mu         sync.RWMutex
	nextID     uint64
	base       map[id.RecordID]models.BaseMetadata
	physical   map[id.RecordID]models.PhysicalMetadata
	attributes map[id.RecordID]models.AttributesMetadata
	mintedAt   map[id.RecordID]time.Time
	names      map[id.Name]id.RecordID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		base:       make(map[id.RecordID]models.BaseMetadata),
		physical:   make(map[id.RecordID]models.PhysicalMetadata),
		attributes: make(map[id.RecordID]models.AttributesMetadata),
		mintedAt:   make(map[id.RecordID]time.Time),
		names:      make(map[id.Name]id.RecordID),
	}
}

func (s *InMemoryStore) NextID(_ context.Context) (id.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allocated := s.nextID
	s.nextID++
	return id.RecordID(allocated), nil
}

func (s *InMemoryStore) NameInUse(_ context.Context, name id.Name) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, used := s.names[name]
	return used, nil
}

func (s *InMemoryStore) Insert(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.names[record.Base.Name]; used {
		return sentinel.ErrConflict
	}
	if _, live := s.base[record.ID]; live {
		return sentinel.ErrConflict
	}
	s.base[record.ID] = record.Base
	s.physical[record.ID] = record.Physical
	s.attributes[record.ID] = record.Attributes
	s.mintedAt[record.ID] = record.MintedAt
	s.names[record.Base.Name] = record.ID
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	base, live := s.base[recordID]
	if !live {
		return sentinel.ErrNotFound
	}
	delete(s.base, recordID)
	delete(s.physical, recordID)
	delete(s.attributes, recordID)
	delete(s.mintedAt, recordID)
	delete(s.names, base.Name)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	base, live := s.base[recordID]
	if !live {
		return nil, sentinel.ErrNotFound
	}
	return &models.Record{
		ID:         recordID,
		Base:       base,
		Physical:   s.physical[recordID],
		Attributes: s.attributes[recordID],
		MintedAt:   s.mintedAt[recordID],
	}, nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	ids := make([]id.RecordID, 0, len(s.base))
	for recordID := range s.base {
		ids = append(ids, recordID)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Record, 0, len(ids))
	for _, recordID := range ids {
		record, err := s.Find(ctx, recordID)
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// ReservedNames returns the current reservation set. Test helper for the
// invariant "reservation set == names of live records".
func (s *InMemoryStore) ReservedNames() []id.Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.Name, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	return out
}
