package ledger

import (
	"context"
	"sync"

	id "effigy/pkg/domain"
	"effigy/pkg/platform/sentinel"
)

type operatorPair struct {
	owner    id.PrincipalID
	operator id.PrincipalID
}

// InMemoryLedger keeps ownership state in process memory. It intentionally
// favors clarity over performance.
type InMemoryLedger struct {
	mu        sync.RWMutex
	guard     Guard
	owners    map[id.RecordID]id.PrincipalID
	approved  map[id.RecordID]id.PrincipalID
	operators map[operatorPair]struct{}
}

func NewInMemory(guard Guard) *InMemoryLedger {
	return &InMemoryLedger{
		guard:     guard,
		owners:    make(map[id.RecordID]id.PrincipalID),
		approved:  make(map[id.RecordID]id.PrincipalID),
		operators: make(map[operatorPair]struct{}),
	}
}

func (l *InMemoryLedger) Exists(_ context.Context, recordID id.RecordID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.owners[recordID]
	return ok, nil
}

func (l *InMemoryLedger) OwnerOf(_ context.Context, recordID id.RecordID) (id.PrincipalID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[recordID]
	if !ok {
		return id.NilPrincipal, sentinel.ErrNotFound
	}
	return owner, nil
}

func (l *InMemoryLedger) IsApprovedOrOwner(_ context.Context, principal id.PrincipalID, recordID id.RecordID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[recordID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if owner == principal {
		return true, nil
	}
	if l.approved[recordID] == principal {
		return true, nil
	}
	_, operator := l.operators[operatorPair{owner: owner, operator: principal}]
	return operator, nil
}

func (l *InMemoryLedger) Create(ctx context.Context, owner id.PrincipalID, recordID id.RecordID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[recordID]; ok {
		return sentinel.ErrConflict
	}
	if err := l.guard(ctx, id.NilPrincipal, owner, recordID); err != nil {
		return err
	}
	l.owners[recordID] = owner
	return nil
}

func (l *InMemoryLedger) Destroy(ctx context.Context, recordID id.RecordID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := l.guard(ctx, owner, id.NilPrincipal, recordID); err != nil {
		return err
	}
	delete(l.owners, recordID)
	delete(l.approved, recordID)
	return nil
}

func (l *InMemoryLedger) Transfer(ctx context.Context, from, to id.PrincipalID, recordID id.RecordID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner != from {
		return sentinel.ErrInvalidState
	}
	if err := l.guard(ctx, from, to, recordID); err != nil {
		return err
	}
	l.owners[recordID] = to
	delete(l.approved, recordID)
	return nil
}

func (l *InMemoryLedger) Approve(_ context.Context, operator id.PrincipalID, recordID id.RecordID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[recordID]; !ok {
		return sentinel.ErrNotFound
	}
	if operator.IsNil() {
		delete(l.approved, recordID)
		return nil
	}
	l.approved[recordID] = operator
	return nil
}

func (l *InMemoryLedger) SetApprovalForAll(_ context.Context, owner, operator id.PrincipalID, approved bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pair := operatorPair{owner: owner, operator: operator}
	if approved {
		l.operators[pair] = struct{}{}
		return nil
	}
	delete(l.operators, pair)
	return nil
}
