package service

import (
	"context"
	"sync"
	"time"

	"github.com/loanops/commsync/internal/model"
)

// MemDedupeStore is the in-process fallback when Redis is not configured.
// Entries expire lazily on read.
type MemDedupeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemDedupeStore() *MemDedupeStore {
	return &MemDedupeStore{entries: make(map[string]time.Time)}
}

func (s *MemDedupeStore) Seen(_ context.Context, opportunityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[opportunityID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.entries, opportunityID)
		return false, nil
	}
	return true, nil
}

func (s *MemDedupeStore) Mark(_ context.Context, opportunityID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[opportunityID] = time.Now().Add(ttl)
	return nil
}

// MemCycleStore keeps the last cycle report in memory for /health.
type MemCycleStore struct {
	mu   sync.RWMutex
	last *model.CycleReport
}

func NewMemCycleStore() *MemCycleStore {
	return &MemCycleStore{}
}

func (s *MemCycleStore) SaveLastCycle(_ context.Context, report *model.CycleReport) error {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return nil
}

func (s *MemCycleStore) LastCycle(_ context.Context) (*model.CycleReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, nil
}
