package dedup

import (
	"context"
	"fmt"
	"time"

	"eventflow/internal/config"
	"eventflow/internal/constants"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/tracing"
)

var defaultFields = []string{"id"}

// Service answers "has this message been seen within the TTL?" against a
// shared Repository, so duplicates are detected across engine instances.
type Service struct {
	repo    Repository
	hasher  *Hasher
	fields  []string
	ttl     time.Duration
	onError string
	logger  logger.Logger
}

func NewService(repo Repository, cfg config.DedupConfig, log logger.Logger) (*Service, error) {
	hasher, err := NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger()
	}

	fields := cfg.FieldsToHash
	if len(fields) == 0 {
		fields = defaultFields
		log.Infow("No fields_to_hash configured, using defaults", "fields", fields)
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = constants.DefaultTTLSeconds * time.Second
	}
	onError := cfg.OnError
	if onError == "" {
		onError = constants.FallbackAllow
	}

	return &Service{
		repo:    repo,
		hasher:  hasher,
		fields:  append([]string(nil), fields...),
		ttl:     ttl,
		onError: onError,
		logger:  log,
	}, nil
}

// IsUnique records msg and reports whether it was new. fields overrides
// the configured hash fields when non-empty. When the store fails the
// configured fallback decides: "allow" treats the message as unique,
// "deny" returns the error.
func (s *Service) IsUnique(ctx context.Context, msg *message.Message, fields ...string) (bool, error) {
	ctx, span := tracing.GetTracer("dedup").Start(ctx, "dedup.check")
	defer span.End()

	if len(fields) == 0 {
		fields = s.fields
	}
	hash, err := s.hasher.ComputeHash(msg, fields)
	if err != nil {
		return false, err
	}

	start := time.Now()
	unique, err := s.repo.SetNX(ctx, constants.CacheKeyPrefixDedup+hash, start.Unix(), s.ttl)
	duration := time.Since(start)
	if err != nil {
		s.record(duration, "error")
		return s.fallback(ctx, err)
	}

	if unique {
		s.record(duration, "unique")
	} else {
		s.record(duration, "duplicate")
	}
	return unique, nil
}

// CacheSize counts the keys currently remembered.
func (s *Service) CacheSize(ctx context.Context) (int, error) {
	return s.repo.CountKeys(ctx, constants.CacheKeyPrefixDedup)
}

func (s *Service) Fields() []string {
	return append([]string(nil), s.fields...)
}

func (s *Service) fallback(ctx context.Context, err error) (bool, error) {
	if s.onError == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("dedup", "allow_on_error", "store_error").Inc()
		s.logger.WarnwCtx(ctx, "Dedup store error, treating message as unique",
			"error", err,
		)
		return true, nil
	}
	metrics.FallbackUsageTotal.WithLabelValues("dedup", "deny_on_error", "store_error").Inc()
	return false, fmt.Errorf("dedup check failed: %w", err)
}

func (s *Service) record(duration time.Duration, status string) {
	metrics.DedupMessagesTotal.WithLabelValues(status).Inc()
	metrics.ObserveDedupDuration(duration, status)
}
