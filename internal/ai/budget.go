package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BudgetChecker checks and records token usage against per-learner daily
// budgets.
type BudgetChecker interface {
	// Check returns true if the learner has budget remaining today.
	Check(ctx context.Context, learnerID string) (bool, error)
	// Record adds token usage for the learner to today's total.
	Record(ctx context.Context, learnerID string, tokens int) error
	// Usage returns today's usage and the learner's limit (0 = unlimited).
	Usage(ctx context.Context, learnerID string) (used int64, limit int64, err error)
}

// InMemoryBudget is a process-local BudgetChecker.
type InMemoryBudget struct {
	mu           sync.RWMutex
	defaultLimit int64
	limits       map[string]int64 // learner -> limit override
	usage        map[string]int64 // learner:day -> tokens used
	now          func() time.Time
}

// NewInMemoryBudget creates a budget tracker where every learner gets
// defaultLimit tokens per day. Zero means unlimited.
func NewInMemoryBudget(defaultLimit int64) *InMemoryBudget {
	return &InMemoryBudget{
		defaultLimit: defaultLimit,
		limits:       make(map[string]int64),
		usage:        make(map[string]int64),
		now:          time.Now,
	}
}

// SetBudget overrides the daily token limit for one learner.
func (b *InMemoryBudget) SetBudget(learnerID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limits[learnerID] = tokens
}

func (b *InMemoryBudget) Check(_ context.Context, learnerID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limitFor(learnerID)
	if limit <= 0 {
		return true, nil
	}
	return b.usage[budgetKey(learnerID, b.now())] < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[budgetKey(learnerID, b.now())] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, learnerID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[budgetKey(learnerID, b.now())], b.limitFor(learnerID), nil
}

// limitFor must be called with b.mu held.
func (b *InMemoryBudget) limitFor(learnerID string) int64 {
	if limit, ok := b.limits[learnerID]; ok {
		return limit
	}
	return b.defaultLimit
}

func budgetKey(learnerID string, day time.Time) string {
	return learnerID + ":" + day.UTC().Format("20060102")
}
