package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMalformedRecord is returned when a stored progress record cannot be
// decoded.
var ErrMalformedRecord = errors.New("malformed progress record")

// Store persists learner progress keyed by learner ID.
type Store interface {
	// Get returns false when the learner has no recorded progress.
	Get(ctx context.Context, learnerID string) (StudentProgress, bool, error)
	// Put replaces the stored progress for p.LearnerID.
	Put(ctx context.Context, p StudentProgress) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]StudentProgress
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]StudentProgress),
	}
}

func (s *MemoryStore) Get(_ context.Context, learnerID string) (StudentProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[learnerID]
	if !ok {
		return StudentProgress{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *MemoryStore) Put(_ context.Context, p StudentProgress) error {
	if p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	stored := p.Clone()
	stored.LastSession = sessionTime(stored.LastSession)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.LearnerID] = stored
	return nil
}
