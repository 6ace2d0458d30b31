package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pledger/internal/campaign"
	id "pledger/pkg/domain"
)

// ErrNotFound is returned when no campaign exists for an ID.
var ErrNotFound = errors.New("campaign not found")

// InMemoryStore holds campaigns in a mutex-guarded map with monotonic IDs.
// Reads return deep copies. Update applies mutations to a copy and commits
// only on success, which gives every mutating operation all-or-nothing
// semantics with respect to readers and to failures inside the closure.
type InMemoryStore struct {
	mu        sync.RWMutex
	nextID    uint64
	campaigns map[id.CampaignID]*campaign.Campaign
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{campaigns: make(map[id.CampaignID]*campaign.Campaign)}
}

func (s *InMemoryStore) Create(_ context.Context, c *campaign.Campaign) (id.CampaignID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := c.Clone()
	stored.ID = id.CampaignID(s.nextID)
	s.campaigns[stored.ID] = stored
	return stored.ID, nil
}

func (s *InMemoryStore) Get(_ context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, offset, limit int) ([]*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]id.CampaignID, 0, len(s.campaigns))
	for campaignID := range s.campaigns {
		ids = append(ids, campaignID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	out := make([]*campaign.Campaign, 0, end-offset)
	for _, campaignID := range ids[offset:end] {
		out = append(out, s.campaigns[campaignID].Clone())
	}
	return out, nil
}

// Update runs fn against a working copy under the store lock and commits the
// copy only when fn returns nil. Concurrent mutations on the same campaign
// serialize here; readers never observe a half-applied mutation.
func (s *InMemoryStore) Update(_ context.Context, campaignID id.CampaignID, fn func(*campaign.Campaign) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return ErrNotFound
	}
	working := c.Clone()
	if err := fn(working); err != nil {
		return err
	}
	s.campaigns[campaignID] = working
	return nil
}
