// Package runner drives streams: it polls each source, dispatches messages
// into their pipelines and acknowledges them once processed.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/logging"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/tracing"
)

type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// Status is a point-in-time view of one runner.
type Status struct {
	Stream    string    `json:"stream"`
	State     State     `json:"state"`
	Processed int64     `json:"processed"`
	Warnings  int64     `json:"warnings"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// loadErrer is implemented by sources whose EOF may mean "could not load".
type loadErrer interface {
	Err() error
}

// Runner owns the single consumption loop of one stream.
type Runner struct {
	stream     *engine.Stream
	waitAtMost time.Duration
	log        logger.Logger

	processed atomic.Int64
	mu        sync.Mutex
	state     State
	startedAt time.Time
}

func New(stream *engine.Stream, waitAtMost time.Duration, log logger.Logger) *Runner {
	if waitAtMost <= 0 {
		waitAtMost = constants.DefaultWaitAtMost
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Runner{
		stream:     stream,
		waitAtMost: waitAtMost,
		log:        log.With("stream", stream.Name()),
		state:      StatePending,
	}
}

func (r *Runner) Stream() *engine.Stream {
	return r.stream
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		Stream:    r.stream.Name(),
		State:     r.state,
		Processed: r.processed.Load(),
		Warnings:  r.stream.Warnings(),
		StartedAt: r.startedAt,
	}
	if err := r.stream.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	if s == StateRunning {
		r.startedAt = time.Now()
	}
	r.mu.Unlock()
}

// Run polls until the source reaches EOF, the stream fails or ctx is done.
// Cancellation is a clean stop; only a failed stream returns an error.
func (r *Runner) Run(ctx context.Context) error {
	src := r.stream.Source()
	if src == nil {
		r.setState(StateFailed)
		r.stream.Fail(apperrors.ErrValidation.WithMessage("stream has no source"))
		return r.stream.Err()
	}

	ctx = logging.WithStream(ctx, r.stream.Name())
	r.setState(StateRunning)
	r.log.InfowCtx(ctx, "Stream started", "wait_at_most", r.waitAtMost)

	defer func() {
		if err := src.Close(); err != nil {
			r.log.WarnwCtx(ctx, "Failed to close source", "error", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			r.setState(StateStopped)
			r.log.InfowCtx(ctx, "Stream stopped", "processed", r.processed.Load())
			return nil
		}
		if err := r.stream.Err(); err != nil {
			r.setState(StateFailed)
			return err
		}
		if src.IsEOF() {
			if le, ok := src.(loadErrer); ok && le.Err() != nil {
				r.stream.Fail(le.Err())
				r.setState(StateFailed)
				return r.stream.Err()
			}
			r.setState(StateFinished)
			r.log.InfowCtx(ctx, "Stream finished", "processed", r.processed.Load())
			return nil
		}

		routed := src.GetNextMessage(ctx, r.stream, r.waitAtMost)
		if routed == nil {
			metrics.IncSourcePoll(r.stream.Name(), "empty")
			continue
		}
		metrics.IncSourcePoll(r.stream.Name(), "message")

		r.dispatch(ctx, routed)
		r.processed.Add(1)

		if err := src.MarkComplete(ctx, r.stream, routed); err != nil {
			r.stream.Warn(ctx, "failed to mark message complete", "pipeline", routed.Pipeline, "error", err)
		}
	}
}

// dispatch runs one traversal. A panic inside a pipeline is reported as a
// warning; the message is still acknowledged so it is not redelivered
// forever.
func (r *Runner) dispatch(ctx context.Context, routed *message.Routed) {
	name := r.stream.Name()
	pipeline, ok := r.stream.Pipeline(routed.Pipeline)
	if !ok {
		metrics.IncPipelineMessages(name, routed.Pipeline, "unrouted")
		r.stream.Warn(ctx, "no pipeline for message, dropped", "pipeline", routed.Pipeline)
		return
	}

	ctx = tracing.ExtractHeaders(ctx, routed.Headers)
	ctx, span := tracing.StartPipelineSpan(ctx, name, routed.Pipeline)
	defer span.End()
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}
	if id, ok := routed.Message.GetText("id"); ok {
		ctx = logging.WithMessageID(ctx, id)
	}

	mc := engine.NewMessageContext(ctx, r.stream, routed.Pipeline, routed.Message)
	start := time.Now()
	err := apperrors.Guard(func() {
		pipeline.Process(mc)
	})
	metrics.ObservePipelineDuration(name, routed.Pipeline, time.Since(start))

	status := "completed"
	switch {
	case err != nil:
		status = "panic"
		tracing.RecordError(span, err)
		r.stream.Warn(ctx, "pipeline panicked, message dropped", "error", err)
	case !mc.ShouldContinue():
		status = "stopped"
	}
	metrics.IncPipelineMessages(name, routed.Pipeline, status)
}
