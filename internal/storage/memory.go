package storage

import (
	"context"
	"sync"

	"github.com/sevigo/code-quorum/internal/core"
)

// memoryStore is an in-process CycleStore used by the CLI and in tests, where
// cycle state does not need to outlive the process.
type memoryStore struct {
	mu      sync.Mutex
	states  map[string]core.CycleState
	records map[string][]core.CycleRecord
}

// NewMemoryStore creates an empty in-memory cycle store.
func NewMemoryStore() CycleStore {
	return &memoryStore{
		states:  make(map[string]core.CycleState),
		records: make(map[string][]core.CycleRecord),
	}
}

func (s *memoryStore) State(_ context.Context, cycleID string) (core.CycleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[cycleID]; ok {
		return state, nil
	}
	return core.CycleOpen, nil
}

func (s *memoryStore) Latest(_ context.Context, cycleID string) (*core.CycleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[cycleID]
	if len(recs) == 0 {
		return nil, nil
	}
	latest := recs[len(recs)-1]
	return &latest, nil
}

func (s *memoryStore) SaveRecord(_ context.Context, rec *core.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[rec.CycleID]; !ok {
		s.states[rec.CycleID] = core.CycleOpen
	}
	recs := append(s.records[rec.CycleID], *rec)
	// Keep only the current and the immediately preceding record.
	if len(recs) > 2 {
		recs = recs[len(recs)-2:]
	}
	s.records[rec.CycleID] = recs
	return nil
}

func (s *memoryStore) SetState(_ context.Context, cycleID string, state core.CycleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[cycleID] = state
	return nil
}
