package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	budgetKeyPrefix = "practice:ai_budget:"
	budgetTTL       = 48 * time.Hour
)

// RedisBudget is a BudgetChecker shared by every process pointed at the
// same Redis or Dragonfly instance. Usage counters expire after two days.
type RedisBudget struct {
	client       redis.UniversalClient
	defaultLimit int64
	now          func() time.Time
}

// NewRedisBudget creates a Redis-backed budget tracker. Zero defaultLimit
// means unlimited unless a per-learner limit is set.
func NewRedisBudget(client redis.UniversalClient, defaultLimit int64) *RedisBudget {
	return &RedisBudget{client: client, defaultLimit: defaultLimit, now: time.Now}
}

// SetBudget overrides the daily token limit for one learner.
func (b *RedisBudget) SetBudget(ctx context.Context, learnerID string, tokens int64) error {
	if err := b.client.Set(ctx, budgetKeyPrefix+"limit:"+learnerID, tokens, 0).Err(); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (b *RedisBudget) Check(ctx context.Context, learnerID string) (bool, error) {
	used, limit, err := b.Usage(ctx, learnerID)
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return true, nil
	}
	return used < limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	key := budgetKeyPrefix + budgetKey(learnerID, b.now())
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, budgetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, learnerID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, budgetKeyPrefix+budgetKey(learnerID, b.now())).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("read usage: %w", err)
	}

	limit, err := b.client.Get(ctx, budgetKeyPrefix+"limit:"+learnerID).Int64()
	if errors.Is(err, redis.Nil) {
		return used, b.defaultLimit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read limit: %w", err)
	}
	return used, limit, nil
}
