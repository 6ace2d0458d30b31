package receipt

import (
	"context"
	"errors"
	"sync"

	id "pledger/pkg/domain"
)

// ErrNotFound is returned when no receipt exists for an ID.
var ErrNotFound = errors.New("receipt not found")

// InMemoryStore is an append-only receipt log with monotonic IDs.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   uint64
	receipts map[id.ReceiptID]*Receipt
	order    []id.ReceiptID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{receipts: make(map[id.ReceiptID]*Receipt)}
}

func (s *InMemoryStore) Append(_ context.Context, r *Receipt) (id.ReceiptID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := *r
	stored.ID = id.ReceiptID(s.nextID)
	s.receipts[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	return stored.ID, nil
}

func (s *InMemoryStore) Get(_ context.Context, receiptID id.ReceiptID) (*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[receiptID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (s *InMemoryStore) ListByDonor(_ context.Context, donor id.Identity) ([]*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Receipt
	for _, receiptID := range s.order {
		if r := s.receipts[receiptID]; r.Donor == donor {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByCampaign(_ context.Context, campaignID id.CampaignID) ([]*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Receipt
	for _, receiptID := range s.order {
		if r := s.receipts[receiptID]; r.CampaignID == campaignID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}
