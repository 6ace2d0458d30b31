package milestone

import (
	"context"
	"sync"

	id "pledger/pkg/domain"
)

// InMemoryProofStore is an append-only proof log.
type InMemoryProofStore struct {
	mu     sync.RWMutex
	proofs []Proof
}

func NewInMemoryProofStore() *InMemoryProofStore {
	return &InMemoryProofStore{}
}

func (s *InMemoryProofStore) Append(_ context.Context, proof Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs = append(s.proofs, proof)
	return nil
}

func (s *InMemoryProofStore) ListByCampaign(_ context.Context, campaignID id.CampaignID) ([]Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Proof
	for _, p := range s.proofs {
		if p.CampaignID == campaignID {
			out = append(out, p)
		}
	}
	return out, nil
}
