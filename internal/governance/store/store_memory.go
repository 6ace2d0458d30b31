package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pledger/internal/governance"
	id "pledger/pkg/domain"
)

// ErrNotFound is returned when no proposal exists for an ID.
var ErrNotFound = errors.New("proposal not found")

// InMemoryStore holds proposals in a mutex-guarded map with monotonic IDs.
type InMemoryStore struct {
	mu        sync.RWMutex
	nextID    uint64
	proposals map[id.ProposalID]*governance.Proposal
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{proposals: make(map[id.ProposalID]*governance.Proposal)}
}

func (s *InMemoryStore) Create(_ context.Context, p *governance.Proposal) (id.ProposalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := p.Clone()
	stored.ID = id.ProposalID(s.nextID)
	if stored.Voters == nil {
		stored.Voters = make(map[id.Identity]int64)
	}
	s.proposals[stored.ID] = stored
	return stored.ID, nil
}

func (s *InMemoryStore) Get(_ context.Context, proposalID id.ProposalID) (*governance.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[proposalID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, offset, limit int) ([]*governance.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]id.ProposalID, 0, len(s.proposals))
	for proposalID := range s.proposals {
		ids = append(ids, proposalID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	out := make([]*governance.Proposal, 0, end-offset)
	for _, proposalID := range ids[offset:end] {
		out = append(out, s.proposals[proposalID].Clone())
	}
	return out, nil
}

// Update runs fn against a working copy under the store lock and commits
// only on success. Proposal locks are acquired before any campaign lock, in
// that fixed order, so cross-entity execution cannot deadlock.
func (s *InMemoryStore) Update(_ context.Context, proposalID id.ProposalID, fn func(*governance.Proposal) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[proposalID]
	if !ok {
		return ErrNotFound
	}
	working := p.Clone()
	if err := fn(working); err != nil {
		return err
	}
	s.proposals[proposalID] = working
	return nil
}
