package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"effigy/internal/registry/models"
	"effigy/internal/registry/store"
	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
}

func (s *InMemoryStoreSuite) mustName(raw string) id.Name {
	name, err := id.ParseName(raw)
	s.Require().NoError(err)
	return name
}

func (s *InMemoryStoreSuite) mintRecord(raw string) *models.Record {
	recordID, err := s.store.NextID(s.ctx)
	s.Require().NoError(err)
	record := &models.Record{
		ID:         recordID,
		Base:       models.BaseMetadata{Name: s.mustName(raw)},
		Physical:   models.PhysicalMetadata{Height: 180, Weight: 75},
		Attributes: models.AttributesMetadata{Strength: 10, Agility: 8, Intelligence: 12},
		MintedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.store.Insert(s.ctx, record))
	return record
}

func (s *InMemoryStoreSuite) TestNextIDStrictlyIncreasing() {
	first, err := s.store.NextID(s.ctx)
	s.Require().NoError(err)
	second, err := s.store.NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(first+1, second)
}

func (s *InMemoryStoreSuite) TestInsertAndFind() {
	minted := s.mintRecord("gareth")

	found, err := s.store.Find(s.ctx, minted.ID)
	s.Require().NoError(err)
	s.Equal(minted.ID, found.ID)
	s.Equal("gareth", found.Base.Name.String())
	s.Equal(minted.Physical, found.Physical)
	s.Equal(minted.Attributes, found.Attributes)

	used, err := s.store.NameInUse(s.ctx, minted.Base.Name)
	s.Require().NoError(err)
	s.True(used)
}

func (s *InMemoryStoreSuite) TestInsertRejectsReservedName() {
	s.mintRecord("gareth")

	recordID, err := s.store.NextID(s.ctx)
	s.Require().NoError(err)
	err = s.store.Insert(s.ctx, &models.Record{
		ID:   recordID,
		Base: models.BaseMetadata{Name: s.mustName("gareth")},
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestDeleteReleasesName() {
	minted := s.mintRecord("gareth")

	s.Require().NoError(s.store.Delete(s.ctx, minted.ID))

	_, err := s.store.Find(s.ctx, minted.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	used, err := s.store.NameInUse(s.ctx, minted.Base.Name)
	s.Require().NoError(err)
	s.False(used)

	// A released name is mintable again under a fresh identifier.
	reminted := s.mintRecord("gareth")
	s.Greater(reminted.ID, minted.ID)
}

func (s *InMemoryStoreSuite) TestDeleteUnknownRecord() {
	err := s.store.Delete(s.ctx, id.RecordID(42))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCounterUnaffectedByDelete() {
	first := s.mintRecord("first")
	s.Require().NoError(s.store.Delete(s.ctx, first.ID))

	second := s.mintRecord("second")
	s.Equal(first.ID+1, second.ID)
}

func (s *InMemoryStoreSuite) TestReservationSetMatchesLiveRecords() {
	s.mintRecord("alpha")
	beta := s.mintRecord("beta")
	s.mintRecord("gamma")
	s.Require().NoError(s.store.Delete(s.ctx, beta.ID))

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)

	live := make(map[id.Name]bool, len(records))
	for _, record := range records {
		live[record.Base.Name] = true
	}
	reserved := s.store.ReservedNames()
	s.Len(reserved, len(live))
	for _, name := range reserved {
		s.True(live[name], "reserved name %q has no live record", name.String())
	}
}

func (s *InMemoryStoreSuite) TestListOrderedByID() {
	s.mintRecord("alpha")
	s.mintRecord("beta")
	s.mintRecord("gamma")

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for i := 1; i < len(records); i++ {
		s.Less(records[i-1].ID, records[i].ID)
	}
}
