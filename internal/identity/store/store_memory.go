package store

import (
	"context"
	"sync"

	"pledger/internal/identity"
	id "pledger/pkg/domain"
)

// InMemoryStore keeps verification records in a mutex-guarded map. Reads
// return deep copies; mutations go through Update so callers never hold
// references into the map.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.Identity]*identity.VerificationRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.Identity]*identity.VerificationRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, subject id.Identity) (*identity.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[subject]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) Put(_ context.Context, record *identity.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Identity] = record.Clone()
	return nil
}

// Update applies fn to a copy of the record and commits only when fn
// succeeds, so a failed decision leaves the record untouched.
func (s *InMemoryStore) Update(_ context.Context, subject id.Identity, fn func(*identity.VerificationRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[subject]
	if !ok {
		return identity.ErrNotFound
	}
	working := record.Clone()
	if err := fn(working); err != nil {
		return err
	}
	s.records[subject] = working
	return nil
}
