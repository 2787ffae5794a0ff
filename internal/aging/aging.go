// Package aging holds messages off the pipeline for a delay and then hands
// them back to their stream, into a fixed "on complete" pipeline.
package aging

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
)

var (
	ErrCancelUnsupported = apperrors.ErrUnsupported.WithMessage("aging cancellation is not supported")
	ErrStopped           = errors.New("aging queue is stopped")
)

type Config struct {
	Name         string
	OnComplete   string
	PollInterval time.Duration
}

// Aging is one delayed-redelivery queue. StartAging may be called from any
// goroutine; a single worker goroutine owns removal.
type Aging struct {
	name         string
	onComplete   string
	pollInterval time.Duration
	log          logger.Logger
	now          func() time.Time

	mu      sync.Mutex
	queue   entryHeap
	seq     uint64
	started bool
	stopped bool

	wake chan struct{}
	t    tomb.Tomb
}

func New(cfg Config, log logger.Logger) *Aging {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.DefaultAgingPollInterval
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Aging{
		name:         cfg.Name,
		onComplete:   cfg.OnComplete,
		pollInterval: cfg.PollInterval,
		log:          log.With("aging", cfg.Name),
		now:          time.Now,
		wake:         make(chan struct{}, 1),
	}
}

func (a *Aging) Name() string       { return a.name }
func (a *Aging) OnComplete() string { return a.onComplete }

// Start launches the worker goroutine. It is a no-op after the first call.
func (a *Aging) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true
	a.t.Go(a.run)
	a.log.Infow("aging worker started", "on_complete", a.onComplete, "poll_interval", a.pollInterval)
}

// Stop asks the worker to exit and waits for it, or for ctx. Entries still
// pending are discarded.
func (a *Aging) Stop(ctx context.Context) error {
	a.mu.Lock()
	started := a.started
	a.stopped = true
	pending := a.queue.Len()
	a.mu.Unlock()

	if !started {
		return nil
	}

	a.t.Kill(nil)
	select {
	case <-a.t.Dead():
	case <-ctx.Done():
		return ctx.Err()
	}

	if pending > 0 {
		a.log.Warnw("aging worker stopped with pending entries", "pending", pending)
	}
	return a.t.Err()
}

// StartAging schedules a snapshot of the message in mc for redelivery once d
// has elapsed. The returned id identifies the entry in listings.
func (a *Aging) StartAging(mc *engine.MessageContext, d time.Duration) (string, error) {
	stream := mc.Stream()
	if stream == nil {
		return "", apperrors.ErrValidation.WithMessage("message context has no stream")
	}

	e := &entry{
		id:        uuid.NewString(),
		stream:    stream,
		msg:       mc.Message().Clone(),
		expiresAt: a.now().Add(d),
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return "", ErrStopped
	}
	a.seq++
	e.seq = a.seq
	a.queue.push(e)
	n := a.queue.Len()
	a.mu.Unlock()

	metrics.SetAgingPending(a.name, n)
	a.signal()
	return e.id, nil
}

// CancelAging is not supported: once aged, a message is always redelivered.
func (a *Aging) CancelAging(*message.Message) error {
	return ErrCancelUnsupported
}

func (a *Aging) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queue.Len()
}

type Entry struct {
	ID        string    `json:"id"`
	Stream    string    `json:"stream"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Pending lists queued entries, earliest expiry first.
func (a *Aging) Pending() []Entry {
	a.mu.Lock()
	entries := make([]Entry, 0, a.queue.Len())
	for _, e := range a.queue {
		entries = append(entries, Entry{ID: e.id, Stream: e.stream.Name(), ExpiresAt: e.expiresAt})
	}
	a.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})
	return entries
}

func (a *Aging) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *Aging) run() error {
	timer := time.NewTimer(a.pollInterval)
	defer timer.Stop()

	for {
		a.requeueExpired()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(a.nextWait())

		select {
		case <-a.t.Dying():
			return nil
		case <-a.wake:
		case <-timer.C:
		}
	}
}

func (a *Aging) nextWait() time.Duration {
	a.mu.Lock()
	next, ok := a.queue.next()
	a.mu.Unlock()

	if !ok {
		return a.pollInterval
	}
	wait := next.Sub(a.now())
	if wait < 0 {
		return 0
	}
	if wait > a.pollInterval {
		return a.pollInterval
	}
	return wait
}

func (a *Aging) requeueExpired() {
	a.mu.Lock()
	due := a.queue.popExpired(a.now())
	n := a.queue.Len()
	a.mu.Unlock()

	if len(due) == 0 {
		return
	}
	metrics.SetAgingPending(a.name, n)

	for _, e := range due {
		routed := message.NewRouted(e.msg, a.onComplete)
		if err := e.stream.Requeue(routed); err != nil {
			status := "error"
			if apperrors.IsUnsupported(err) {
				status = "unsupported"
			}
			metrics.IncAgingRequeued(status)
			e.stream.Warn(context.Background(), "failed to requeue aged message",
				"aging", a.name,
				"entry_id", e.id,
				"pipeline", a.onComplete,
				"error", err,
			)
			continue
		}
		metrics.IncAgingRequeued("ok")
		a.log.Debugw("aged message requeued", "entry_id", e.id, "stream", e.stream.Name())
	}
}
