package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/config"
	"eventflow/internal/constants"
	"eventflow/pkg/circuitbreaker"
	"eventflow/pkg/message"
)

type memoryRepo struct {
	mu   sync.Mutex
	keys map[string]time.Time
	err  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{keys: make(map[string]time.Time)}
}

func (r *memoryRepo) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if exp, ok := r.keys[key]; ok && time.Now().Before(exp) {
		return false, nil
	}
	r.keys[key] = time.Now().Add(ttl)
	return true, nil
}

func (r *memoryRepo) CountKeys(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.keys {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func order(id, source string) *message.Message {
	return message.New(map[string]interface{}{
		"id":   id,
		"meta": map[string]interface{}{"source": source},
	})
}

func TestService_DetectsDuplicates(t *testing.T) {
	repo := newMemoryRepo()
	svc, err := NewService(repo, config.DedupConfig{FieldsToHash: []string{"id", "meta.source"}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	unique, err := svc.IsUnique(ctx, order("1", "web"))
	require.NoError(t, err)
	assert.True(t, unique)

	unique, err = svc.IsUnique(ctx, order("1", "web"))
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsUnique(ctx, order("1", "app"))
	require.NoError(t, err)
	assert.True(t, unique, "source is part of the identity")

	unique, err = svc.IsUnique(ctx, order("1", "web"), "id")
	require.NoError(t, err)
	assert.True(t, unique)
	unique, err = svc.IsUnique(ctx, order("1", "other"), "id")
	require.NoError(t, err)
	assert.False(t, unique, "field override ignores the source")

	size, err := svc.CacheSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, size)
}

func TestService_Fallback(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("connection refused")
	ctx := context.Background()

	allow, err := NewService(repo, config.DedupConfig{}, nil)
	require.NoError(t, err)
	unique, err := allow.IsUnique(ctx, order("1", "web"))
	require.NoError(t, err)
	assert.True(t, unique)

	deny, err := NewService(repo, config.DedupConfig{OnError: constants.FallbackDeny}, nil)
	require.NoError(t, err)
	unique, err = deny.IsUnique(ctx, order("1", "web"))
	assert.Error(t, err)
	assert.False(t, unique)
}

func TestService_Defaults(t *testing.T) {
	svc, err := NewService(newMemoryRepo(), config.DedupConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, svc.Fields())

	_, err = NewService(newMemoryRepo(), config.DedupConfig{HashAlgorithm: "crc32"}, nil)
	assert.Error(t, err)
}

func TestHasher(t *testing.T) {
	sha, err := NewHasher(AlgorithmSHA256)
	require.NoError(t, err)
	md, err := NewHasher(AlgorithmMD5)
	require.NoError(t, err)

	msg := order("1", "web")
	a, err := sha.ComputeHash(msg, []string{"id", "meta.source"})
	require.NoError(t, err)
	b, err := sha.ComputeHash(msg, []string{"meta.source", "id"})
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	c, err := md.ComputeHash(msg, []string{"id"})
	require.NoError(t, err)
	assert.Len(t, c, 32)

	_, err = sha.ComputeHash(msg, nil)
	assert.Error(t, err)
}

func TestCircuitBreakerRepository_Opens(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("timeout")
	cfg := circuitbreaker.DefaultConfig("dedup-test")
	cfg.Timeout = time.Hour
	cb := NewCircuitBreakerRepository(repo, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cb.SetNX(ctx, "k", 1, time.Minute)
		assert.Error(t, err)
	}
	assert.Equal(t, "open", cb.State())

	repo.err = nil
	_, err := cb.SetNX(ctx, "k", 1, time.Minute)
	assert.ErrorContains(t, err, "circuit breaker is open")
}
