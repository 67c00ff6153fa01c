package vtstore

import (
	"context"
	"fmt"
	"sync"
)

// MemFinalizationStore is an in-memory [FinalizationStore].
type MemFinalizationStore struct {
	mu   sync.Mutex
	fins map[uint64]Finalization
}

func NewMemFinalizationStore() *MemFinalizationStore {
	return &MemFinalizationStore{
		fins: make(map[uint64]Finalization),
	}
}

func (s *MemFinalizationStore) SaveFinalization(_ context.Context, fin Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.fins[fin.Slot]; ok {
		return fmt.Errorf(
			"%w: slot %d already holds %x",
			ErrAlreadyFinalized, fin.Slot, existing.BlockHash,
		)
	}

	s.fins[fin.Slot] = fin
	return nil
}

func (s *MemFinalizationStore) LoadFinalizationBySlot(_ context.Context, slot uint64) (Finalization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fin, ok := s.fins[slot]
	if !ok {
		return Finalization{}, fmt.Errorf("%w: %d", ErrNotFound, slot)
	}
	return fin, nil
}
