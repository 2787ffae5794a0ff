package source

import (
	"sync"

	"github.com/gammazero/deque"

	"eventflow/pkg/message"
)

// requeueBuffer holds redeliveries in arrival order. Queue-backed sources
// drain it before asking their backend for new records.
type requeueBuffer struct {
	mu    sync.Mutex
	items deque.Deque[*message.Routed]
}

func (b *requeueBuffer) push(r *message.Routed) {
	b.mu.Lock()
	b.items.PushBack(r)
	b.mu.Unlock()
}

func (b *requeueBuffer) pop() *message.Routed {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items.Len() == 0 {
		return nil
	}
	return b.items.PopFront()
}

func (b *requeueBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len()
}
