package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventflow/pkg/circuitbreaker"
)

// Repository remembers keys for a while. SetNX reports whether key was new.
type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	CountKeys(ctx context.Context, prefix string) (int, error)
}

type RedisRepository struct {
	client redis.Cmdable
}

func NewRedisRepository(client redis.Cmdable) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

func (r *RedisRepository) CountKeys(ctx context.Context, prefix string) (int, error) {
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}

// CircuitBreakerRepository stops calling a failing store until the
// breaker lets a trial request through again.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg circuitbreaker.Config) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cfg),
	}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := circuitbreaker.Call(ctx, r.cb, func() (bool, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})
	if err != nil && r.cb.IsOpen() {
		return false, fmt.Errorf("circuit breaker is open for %s: %w", r.cb.Name(), err)
	}
	return ok, err
}

func (r *CircuitBreakerRepository) CountKeys(ctx context.Context, prefix string) (int, error) {
	return circuitbreaker.Call(ctx, r.cb, func() (int, error) {
		return r.repo.CountKeys(ctx, prefix)
	})
}

func (r *CircuitBreakerRepository) State() string {
	return r.cb.State().String()
}
