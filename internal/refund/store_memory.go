package refund

import (
	"context"
	"sync"

	id "pledger/pkg/domain"
)

type claimKey struct {
	campaignID id.CampaignID
	donor      id.Identity
}

// InMemoryClaimStore tracks claims in a mutex-guarded set. The transfer runs
// under the lock, so a racing duplicate claim observes the flag before it
// can move funds.
type InMemoryClaimStore struct {
	mu      sync.Mutex
	claimed map[claimKey]bool
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{claimed: make(map[claimKey]bool)}
}

func (s *InMemoryClaimStore) Claim(_ context.Context, campaignID id.CampaignID, donor id.Identity, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := claimKey{campaignID: campaignID, donor: donor}
	if s.claimed[key] {
		return ErrAlreadyClaimed
	}
	if err := fn(); err != nil {
		return err
	}
	s.claimed[key] = true
	return nil
}

func (s *InMemoryClaimStore) Claimed(_ context.Context, campaignID id.CampaignID, donor id.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed[claimKey{campaignID: campaignID, donor: donor}], nil
}
