package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	KeyPattern string `mapstructure:"key_pattern"`
}

// RedisProvider reads the string stored at KeyPattern with {value}
// substituted. Values that are not a JSON object come back as
// {"value": <raw>}.
type RedisProvider struct {
	client     redis.Cmdable
	keyPattern string
}

func NewRedisProvider(client redis.Cmdable, cfg RedisConfig) (*RedisProvider, error) {
	if cfg.KeyPattern == "" {
		return nil, fmt.Errorf("key_pattern is required for redis provider")
	}
	return &RedisProvider{client: client, keyPattern: cfg.KeyPattern}, nil
}

func (p *RedisProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	key := expand(p.keyPattern, value)

	val, err := p.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notFound("cache key not found: " + key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(val), &result); err != nil || result == nil {
		return map[string]interface{}{"value": val}, nil
	}
	return result, nil
}
