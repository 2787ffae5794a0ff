package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
)

type RedisListConfig struct {
	Key    string `mapstructure:"key"`
	MaxLen int64  `mapstructure:"max_len"`
}

// RedisList appends each message to a list. With MaxLen set the list is
// trimmed to its newest MaxLen elements in the same transaction.
type RedisList struct {
	client redis.Cmdable
	key    string
	maxLen int64
	reporter
}

func NewRedisList(name string, client redis.Cmdable, cfg RedisListConfig, log logger.Logger) (*RedisList, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis list sink %s needs a key", name)
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &RedisList{
		client:   client,
		key:      cfg.Key,
		maxLen:   cfg.MaxLen,
		reporter: reporter{name: name, log: log},
	}, nil
}

func (r *RedisList) Init(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisList) Process(mc *engine.MessageContext) {
	r.report(mc, r.push(mc.Context(), mc.Message()))
}

func (r *RedisList) ProcessMessage(msg *message.Message) {
	r.report(nil, r.push(context.Background(), msg))
}

func (r *RedisList) push(ctx context.Context, msg *message.Message) error {
	key := msg.EvalExpression(r.key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, msg.ToLine())
		if r.maxLen > 0 {
			pipe.LTrim(ctx, key, -r.maxLen, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

func (r *RedisList) Flush(context.Context) error {
	return nil
}

func (r *RedisList) Close(context.Context) error {
	return nil
}

type RedisKeyConfig struct {
	Key string        `mapstructure:"key"`
	TTL time.Duration `mapstructure:"ttl"`
}

// RedisKey stores each message under a key derived from the message, so the
// latest message per key wins.
type RedisKey struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	reporter
}

func NewRedisKey(name string, client redis.Cmdable, cfg RedisKeyConfig, log logger.Logger) (*RedisKey, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key sink %s needs a key", name)
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &RedisKey{
		client:   client,
		key:      cfg.Key,
		ttl:      cfg.TTL,
		reporter: reporter{name: name, log: log},
	}, nil
}

func (r *RedisKey) Init(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKey) Process(mc *engine.MessageContext) {
	r.report(mc, r.set(mc.Context(), mc.Message()))
}

func (r *RedisKey) ProcessMessage(msg *message.Message) {
	r.report(nil, r.set(context.Background(), msg))
}

func (r *RedisKey) set(ctx context.Context, msg *message.Message) error {
	key := msg.EvalExpression(r.key)
	if err := r.client.Set(ctx, key, msg.ToLine(), r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKey) Flush(context.Context) error {
	return nil
}

func (r *RedisKey) Close(context.Context) error {
	return nil
}
