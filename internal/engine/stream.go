package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"eventflow/internal/logger"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/message"
)

// StreamContext is the environment shared by every message of one stream.
type StreamContext interface {
	Name() string
	Operator() string
	Services() *Services
	Metrics() Metrics
	Logger() logger.Logger

	// Warn reports a non-fatal problem. The stream keeps running.
	Warn(ctx context.Context, msg string, keysAndValues ...interface{})
	// Fail marks the stream as failed. The first error wins; the driver
	// decides what a failed stream means operationally.
	Fail(err error)
	Err() error

	// Requeue redelivers routed through the stream's source.
	Requeue(routed *message.Routed) error
	Pipeline(name string) (*Pipeline, bool)
}

type StreamConfig struct {
	Name      string
	Operator  string
	Source    Source
	Pipelines PipelineSet
	Services  *Services
	Metrics   Metrics
	Logger    logger.Logger
}

// Stream is the StreamContext of one running source.
type Stream struct {
	name      string
	operator  string
	source    Source
	pipelines PipelineSet
	services  *Services
	metrics   Metrics
	log       logger.Logger

	mu       sync.Mutex
	err      error
	warnings atomic.Int64
}

func NewStream(cfg StreamConfig) *Stream {
	s := &Stream{
		name:      cfg.Name,
		operator:  cfg.Operator,
		source:    cfg.Source,
		pipelines: cfg.Pipelines,
		services:  cfg.Services,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	if s.pipelines == nil {
		s.pipelines = PipelineSet{}
	}
	if s.services == nil {
		s.services = NewServices()
	}
	if s.metrics == nil {
		s.metrics = NopMetrics()
	}
	if s.log == nil {
		s.log = logger.NopLogger()
	}
	s.log = s.log.With("stream", s.name)
	return s
}

func (s *Stream) Name() string          { return s.name }
func (s *Stream) Operator() string      { return s.operator }
func (s *Stream) Services() *Services   { return s.services }
func (s *Stream) Metrics() Metrics      { return s.metrics }
func (s *Stream) Logger() logger.Logger { return s.log }
func (s *Stream) Source() Source        { return s.source }
func (s *Stream) Pipelines() PipelineSet {
	return s.pipelines
}

func (s *Stream) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.warnings.Add(1)
	s.metrics.Counter("stream", s.name, "warnings").Inc()
	s.log.WarnwCtx(ctx, msg, keysAndValues...)
}

func (s *Stream) Warnings() int64 {
	return s.warnings.Load()
}

func (s *Stream) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = apperrors.ErrStreamFailed.
			WithDetail("stream", s.name).
			WithCause(err)
	}
	s.mu.Unlock()

	if first {
		s.metrics.Counter("stream", s.name, "failures").Inc()
		s.log.Errorw("stream failed", "error", err)
	}
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Requeue(routed *message.Routed) error {
	if s.source == nil {
		return ErrRequeueUnsupported.WithDetail("stream", s.name)
	}
	if _, ok := s.pipelines.Get(routed.Pipeline); !ok {
		return apperrors.ErrNotFound.
			WithMessage(fmt.Sprintf("pipeline %q not defined", routed.Pipeline)).
			WithDetail("pipeline", routed.Pipeline)
	}
	if err := s.source.Requeue(routed); err != nil {
		return err
	}
	s.metrics.Counter("stream", s.name, "requeued").Inc()
	return nil
}

func (s *Stream) Pipeline(name string) (*Pipeline, bool) {
	return s.pipelines.Get(name)
}
