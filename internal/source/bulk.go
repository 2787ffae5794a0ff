package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

// LoadFunc fetches the complete working set of a bulk source.
type LoadFunc func(ctx context.Context) ([]*message.Message, error)

// Bulk is a bounded source over a working set loaded in one go. The load
// happens on the first IsEOF or GetNextMessage call, whichever comes first,
// so both observe the same set. Requeue is not supported.
type Bulk struct {
	kind    string
	load    LoadFunc
	routing Routing
	timeout time.Duration

	once    sync.Once
	mu      sync.Mutex
	items   deque.Deque[*message.Routed]
	loaded  int
	loadErr error

	completed atomic.Int64
}

func NewBulk(kind string, routing Routing, timeout time.Duration, load LoadFunc) (*Bulk, error) {
	if err := routing.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = constants.DefaultBulkLoadTimeout
	}
	return &Bulk{
		kind:    kind,
		load:    load,
		routing: routing,
		timeout: timeout,
	}, nil
}

func (b *Bulk) ensureLoaded() {
	b.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		msgs, err := b.load(ctx)

		b.mu.Lock()
		defer b.mu.Unlock()
		if err != nil {
			b.loadErr = fmt.Errorf("load %s working set: %w", b.kind, err)
			return
		}
		for _, msg := range msgs {
			b.items.PushBack(b.routing.Route(msg))
		}
		b.loaded = len(msgs)
	})
}

func (b *Bulk) IsEOF() bool {
	b.ensureLoaded()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len() == 0
}

func (b *Bulk) GetNextMessage(context.Context, engine.StreamContext, time.Duration) *message.Routed {
	b.ensureLoaded()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items.Len() == 0 {
		return nil
	}
	return b.items.PopFront()
}

func (b *Bulk) Requeue(*message.Routed) error {
	return engine.ErrRequeueUnsupported
}

func (b *Bulk) MarkComplete(_ context.Context, _ engine.StreamContext, _ *message.Routed) error {
	b.completed.Add(1)
	return nil
}

func (b *Bulk) Close() error {
	b.mu.Lock()
	b.items.Clear()
	b.mu.Unlock()
	return nil
}

// Err reports a failed load. A failed load leaves the source empty, so it
// is at EOF immediately.
func (b *Bulk) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

// Loaded is the size of the working set.
func (b *Bulk) Loaded() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

func (b *Bulk) Completed() int64 {
	return b.completed.Load()
}

// SliceLoader serves a fixed working set. Every message is cloned per load.
func SliceLoader(msgs ...*message.Message) LoadFunc {
	return func(context.Context) ([]*message.Message, error) {
		out := make([]*message.Message, len(msgs))
		for i, m := range msgs {
			out[i] = m.Clone()
		}
		return out, nil
	}
}
