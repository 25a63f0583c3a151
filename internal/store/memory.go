package store

import (
	"context"
	"sync"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// MemoryStore implements Store with an in-memory slice. Used for testing
// and for deployments without PostgreSQL; snapshots vanish on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps []model.ChainSnapshot
	byID  map[string]int
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap *model.ChainSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *snap
	cp.Quotes = append([]model.OptionQuote(nil), snap.Quotes...)
	s.byID[cp.ID] = len(s.snaps)
	s.snaps = append(s.snaps, cp)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (*model.ChainSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySnapshot(&s.snaps[i]), nil
}

func (s *MemoryStore) LatestSnapshot(_ context.Context) (*model.ChainSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snaps) == 0 {
		return nil, ErrNotFound
	}
	latest := &s.snaps[0]
	for i := range s.snaps[1:] {
		if s.snaps[i+1].GeneratedAt.After(latest.GeneratedAt) {
			latest = &s.snaps[i+1]
		}
	}
	return copySnapshot(latest), nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context, limit int) ([]model.ChainSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Insertion order approximates GeneratedAt order; walk backwards.
	out := make([]model.ChainSnapshot, 0, limit)
	for i := len(s.snaps) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, *copySnapshot(&s.snaps[i]))
	}
	return out, nil
}

func copySnapshot(snap *model.ChainSnapshot) *model.ChainSnapshot {
	cp := *snap
	cp.Quotes = append([]model.OptionQuote(nil), snap.Quotes...)
	return &cp
}
