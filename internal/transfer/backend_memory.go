package transfer

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process ledger of account balances. It is the
// authoritative backend for tests and single-node deployments; distributed
// deployments swap in an adapter to the external settlement system.
type MemoryBackend struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{balances: make(map[string]int64)}
}

func (b *MemoryBackend) Deposit(_ context.Context, account string, amount int64) error {
	if amount <= 0 {
		return ErrInsufficientFunds
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
	return nil
}

// Transfer is all-or-nothing: either both balances move or neither does.
func (b *MemoryBackend) Transfer(_ context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInsufficientFunds
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return ErrInsufficientFunds
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}

func (b *MemoryBackend) Balance(_ context.Context, account string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}
