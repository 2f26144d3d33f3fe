package question

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Filter narrows a query. Zero-valued fields are ignored; set fields are
// combined with AND.
type Filter struct {
	Subject    string
	Chapter    string
	Topic      string
	Difficulty Difficulty
	Year       int
}

// IsZero reports whether no criteria are set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches reports whether q satisfies every criterion in f.
func (f Filter) Matches(q Question) bool {
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.Chapter != "" && q.Chapter != f.Chapter {
		return false
	}
	if f.Topic != "" && q.Topic != f.Topic {
		return false
	}
	if f.Difficulty != 0 && q.Difficulty != f.Difficulty {
		return false
	}
	if f.Year != 0 && q.Year != f.Year {
		return false
	}
	return true
}

// Rand is the randomness source used for sampling. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Store persists questions and answers filtered random draws.
type Store interface {
	// Add inserts q or replaces the question with the same ID.
	Add(ctx context.Context, q Question) error
	// Get looks a question up by ID.
	Get(ctx context.Context, id string) (Question, bool, error)
	// Query returns up to limit questions matching f in random order.
	// No matches yields an empty slice and a nil error.
	Query(ctx context.Context, f Filter, limit int, rng Rand) ([]Question, error)
	// Count returns the number of stored questions.
	Count(ctx context.Context) (int, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	questions map[string]Question
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory question store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: make(map[string]Question),
	}
}

func (s *MemoryStore) Add(_ context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("add question: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Question, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return Question{}, false, nil
	}
	return q.clone(), true, nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter, limit int, rng Rand) ([]Question, error) {
	if limit <= 0 {
		return []Question{}, nil
	}

	s.mu.RLock()
	matched := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if f.Matches(q) {
			matched = append(matched, q.clone())
		}
	}
	s.mu.RUnlock()

	// Map iteration order is not a randomness source we control; sort first
	// so that a seeded rng yields a reproducible draw.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	Shuffle(matched, rng)

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions), nil
}

// Shuffle permutes items in place (Fisher-Yates) using rng.
func Shuffle[T any](items []T, rng Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
