package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBudget tracks token usage in Redis so budgets survive restarts
// and are shared across replicas.
type RedisBudget struct {
	client *redis.Client
}

// NewRedisBudget creates a Redis-backed budget tracker.
func NewRedisBudget(client *redis.Client) *RedisBudget {
	return &RedisBudget{client: client}
}

// SetBudget sets the token budget for a student.
func (b *RedisBudget) SetBudget(ctx context.Context, studentID string, tokens int64) error {
	if err := b.client.Set(ctx, budgetLimitKey(studentID), tokens, 0).Err(); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (b *RedisBudget) Check(ctx context.Context, studentID string) (bool, error) {
	budget, err := b.client.Get(ctx, budgetLimitKey(studentID)).Int64()
	if errors.Is(err, redis.Nil) {
		// No budget set means unlimited.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get budget: %w", err)
	}

	used, err := b.client.Get(ctx, budgetUsageKey(studentID)).Int64()
	if errors.Is(err, redis.Nil) {
		used = 0
	} else if err != nil {
		return false, fmt.Errorf("get usage: %w", err)
	}

	return used < budget, nil
}

func (b *RedisBudget) Record(ctx context.Context, studentID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if err := b.client.IncrBy(ctx, budgetUsageKey(studentID), int64(tokens)).Err(); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, studentID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, budgetUsageKey(studentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("get usage: %w", err)
	}
	budget, err := b.client.Get(ctx, budgetLimitKey(studentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("get budget: %w", err)
	}
	return used, budget, nil
}

func budgetLimitKey(studentID string) string {
	return "budget:limit:" + studentID
}

func budgetUsageKey(studentID string) string {
	return "budget:usage:" + studentID
}
