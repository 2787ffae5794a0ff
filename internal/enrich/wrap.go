package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventflow/internal/constants"
	"eventflow/internal/logger"
	"eventflow/pkg/circuitbreaker"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/metrics"
)

// CircuitBreakerProvider short-circuits calls to a provider that keeps
// failing. Not-found answers count as successes.
type CircuitBreakerProvider struct {
	provider Provider
	cb       *circuitbreaker.Wrapper
	name     string
}

func NewCircuitBreakerProvider(p Provider, cfg circuitbreaker.Config) *CircuitBreakerProvider {
	return &CircuitBreakerProvider{
		provider: p,
		cb:       circuitbreaker.NewWrapper(cfg),
		name:     cfg.Name,
	}
}

type fetchResult struct {
	data    map[string]interface{}
	missing error
}

func (p *CircuitBreakerProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	res, err := circuitbreaker.Call(ctx, p.cb, func() (fetchResult, error) {
		data, err := p.provider.Fetch(ctx, value)
		if apperrors.IsNotFound(err) {
			return fetchResult{missing: err}, nil
		}
		return fetchResult{data: data}, err
	})
	if err != nil {
		if p.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for %s: %w", p.name, err)
		}
		return nil, err
	}
	if res.missing != nil {
		return nil, res.missing
	}
	return res.data, nil
}

func (p *CircuitBreakerProvider) State() string {
	return p.cb.State().String()
}

// CachedProvider keeps successful lookups in Redis for ttl. Cache failures
// are logged and fall through to the wrapped provider.
type CachedProvider struct {
	provider Provider
	client   redis.Cmdable
	name     string
	ttl      time.Duration
	logger   logger.Logger
}

func NewCachedProvider(p Provider, client redis.Cmdable, name string, ttl time.Duration, log logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.NopLogger()
	}
	return &CachedProvider{
		provider: p,
		client:   client,
		name:     name,
		ttl:      ttl,
		logger:   log,
	}
}

func (p *CachedProvider) key(value string) string {
	return constants.CacheKeyPrefixEnrich + p.name + ":" + value
}

func (p *CachedProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	key := p.key(value)

	cached, err := p.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var data map[string]interface{}
		if jsonErr := json.Unmarshal(cached, &data); jsonErr == nil {
			return data, nil
		}
		p.logger.WarnwCtx(ctx, "Discarding unreadable cache entry", "provider", p.name, "key", key)
	case !errors.Is(err, redis.Nil):
		p.logger.WarnwCtx(ctx, "Enrichment cache read failed", "provider", p.name, "error", err)
	}

	data, err := p.provider.Fetch(ctx, value)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(data); err == nil {
		if err := p.client.Set(ctx, key, encoded, p.ttl).Err(); err != nil {
			p.logger.WarnwCtx(ctx, "Enrichment cache write failed", "provider", p.name, "error", err)
		}
	}
	return data, nil
}

type instrumented struct {
	provider Provider
	name     string
}

// Instrument records request counts and latency for p under name.
func Instrument(name string, p Provider) Provider {
	return &instrumented{provider: p, name: name}
}

func (p *instrumented) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	start := time.Now()
	data, err := p.provider.Fetch(ctx, value)
	metrics.ObserveEnrichmentProviderDuration(p.name, time.Since(start))

	status := "success"
	switch {
	case apperrors.IsNotFound(err):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.IncEnrichmentProviderRequest(p.name, status)
	return data, err
}
