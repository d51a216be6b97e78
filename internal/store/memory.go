package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/datatable/internal/core"
)

// MemoryStore keeps the snapshot in process memory. It backs tests and
// throwaway servers.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *core.Snapshot
	saves int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil
	}
	out := s.snap.Clone()
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := snap.Clone()
	s.snap = &c
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	return nil
}
