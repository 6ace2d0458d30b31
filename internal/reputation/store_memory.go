package reputation

import (
	"context"
	"sync"

	id "pledger/pkg/domain"
)

// InMemoryStore keeps user stats in a mutex-guarded map.
type InMemoryStore struct {
	mu    sync.RWMutex
	stats map[id.Identity]*UserStats
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{stats: make(map[id.Identity]*UserStats)}
}

func (s *InMemoryStore) Get(_ context.Context, subject id.Identity) (*UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if stats, ok := s.stats[subject]; ok {
		return stats.Clone(), nil
	}
	return nil, nil
}

func (s *InMemoryStore) Update(_ context.Context, subject id.Identity, fn func(*UserStats) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.stats[subject]
	if !ok {
		stats = &UserStats{Identity: subject}
	}
	working := stats.Clone()
	if err := fn(working); err != nil {
		return err
	}
	s.stats[subject] = working
	return nil
}
