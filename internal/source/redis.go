package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
)

type RedisListConfig struct {
	Routing `mapstructure:",squash"`

	Key           string `mapstructure:"key"`
	ProcessingKey string `mapstructure:"processing_key"`
	Commit        string `mapstructure:"commit"`
}

// RedisList pops JSON documents from the head of a Redis list.
//
// The draw policy uses BLPOP. The completion policy moves each element onto
// a processing list with BLMOVE and removes it there on MarkComplete, so
// unfinished work survives a crash on the processing list.
type RedisList struct {
	client        redis.Cmdable
	key           string
	processingKey string
	policy        string
	routing       Routing

	requeued requeueBuffer

	mu      sync.Mutex
	pending map[*message.Routed]string
}

func NewRedisList(client redis.Cmdable, cfg RedisListConfig) (*RedisList, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis list source needs a key")
	}
	policy, err := commitPolicy(cfg.Commit)
	if err != nil {
		return nil, err
	}
	if err := cfg.Routing.Validate(); err != nil {
		return nil, err
	}
	processing := cfg.ProcessingKey
	if processing == "" {
		processing = cfg.Key + ":processing"
	}
	return &RedisList{
		client:        client,
		key:           cfg.Key,
		processingKey: processing,
		policy:        policy,
		routing:       cfg.Routing,
		pending:       make(map[*message.Routed]string),
	}, nil
}

func (s *RedisList) IsEOF() bool {
	return false
}

func (s *RedisList) GetNextMessage(ctx context.Context, stream engine.StreamContext, waitAtMost time.Duration) *message.Routed {
	if r := s.requeued.pop(); r != nil {
		metrics.IncSourcePoll(stream.Name(), "requeued")
		return r
	}

	raw, err := s.pop(ctx, waitAtMost)
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil
		}
		metrics.IncSourcePoll(stream.Name(), "error")
		stream.Warn(ctx, "Failed to pop redis list element",
			"error", err,
			"key", s.key,
		)
		return nil
	}

	msg, err := message.Parse([]byte(raw))
	if err != nil {
		stream.Warn(ctx, "Dropping unparsable redis list element",
			"error", err,
			"key", s.key,
		)
		if s.policy == constants.CommitOnCompletion {
			s.ack(ctx, stream, raw)
		}
		return nil
	}

	routed := s.routing.Route(msg)
	if s.policy == constants.CommitOnCompletion {
		s.mu.Lock()
		s.pending[routed] = raw
		s.mu.Unlock()
	} else {
		metrics.IncSourceCommit("redis", s.policy, "success")
	}
	return routed
}

func (s *RedisList) pop(ctx context.Context, wait time.Duration) (string, error) {
	if s.policy == constants.CommitOnCompletion {
		if wait <= 0 {
			return s.client.LMove(ctx, s.key, s.processingKey, "LEFT", "RIGHT").Result()
		}
		return s.client.BLMove(ctx, s.key, s.processingKey, "LEFT", "RIGHT", wait).Result()
	}

	if wait <= 0 {
		return s.client.LPop(ctx, s.key).Result()
	}
	res, err := s.client.BLPop(ctx, wait, s.key).Result()
	if err != nil {
		return "", err
	}
	// BLPOP replies with [key, value].
	return res[1], nil
}

func (s *RedisList) Requeue(routed *message.Routed) error {
	s.requeued.push(routed)
	return nil
}

func (s *RedisList) MarkComplete(ctx context.Context, stream engine.StreamContext, routed *message.Routed) error {
	if s.policy != constants.CommitOnCompletion {
		return nil
	}

	s.mu.Lock()
	raw, ok := s.pending[routed]
	delete(s.pending, routed)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.ack(ctx, stream, raw)
}

func (s *RedisList) ack(ctx context.Context, stream engine.StreamContext, raw string) error {
	if err := s.client.LRem(ctx, s.processingKey, 1, raw).Err(); err != nil {
		metrics.IncSourceCommit("redis", s.policy, "error")
		stream.Warn(ctx, "Failed to remove element from processing list",
			"error", err,
			"key", s.processingKey,
		)
		return fmt.Errorf("lrem %s: %w", s.processingKey, err)
	}
	metrics.IncSourceCommit("redis", s.policy, "success")
	return nil
}

// Close leaves the client open; it belongs to the process-wide connections.
func (s *RedisList) Close() error {
	return nil
}
