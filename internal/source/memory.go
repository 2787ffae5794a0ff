package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

var ErrClosed = errors.New("source is closed")

// Memory is an in-process queue. It is unbounded until Close; after Close it
// reports EOF once the queue has drained. Requeue is accepted in both states.
type Memory struct {
	routing Routing

	mu     sync.Mutex
	queue  deque.Deque[*message.Routed]
	closed bool
	notify chan struct{}

	completed atomic.Int64
}

func NewMemory(routing Routing) *Memory {
	return &Memory{
		routing: routing,
		notify:  make(chan struct{}, 1),
	}
}

// Push enqueues msg, routed by the source's routing settings.
func (m *Memory) Push(msg *message.Message) error {
	return m.PushRouted(m.routing.Route(msg))
}

func (m *Memory) PushRouted(routed *message.Routed) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.queue.PushBack(routed)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *Memory) IsEOF() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed && m.queue.Len() == 0
}

func (m *Memory) GetNextMessage(ctx context.Context, _ engine.StreamContext, waitAtMost time.Duration) *message.Routed {
	var timer *time.Timer
	for {
		if r, done := m.take(); r != nil || done {
			return r
		}
		if waitAtMost <= 0 {
			return nil
		}
		if timer == nil {
			timer = time.NewTimer(waitAtMost)
			defer timer.Stop()
		}

		select {
		case <-m.notify:
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// take pops the head of the queue. done is true when the queue is empty and
// closed, so waiting any longer is pointless.
func (m *Memory) take() (r *message.Routed, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queue.Len() > 0 {
		return m.queue.PopFront(), false
	}
	return nil, m.closed
}

func (m *Memory) Requeue(routed *message.Routed) error {
	m.mu.Lock()
	m.queue.PushBack(routed)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *Memory) MarkComplete(_ context.Context, _ engine.StreamContext, _ *message.Routed) error {
	m.completed.Add(1)
	return nil
}

// Close stops accepting pushes. Queued messages are still delivered.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

func (m *Memory) Completed() int64 {
	return m.completed.Load()
}

func (m *Memory) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
