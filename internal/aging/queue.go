package aging

import (
	"container/heap"
	"time"

	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

type entry struct {
	id        string
	stream    engine.StreamContext
	msg       *message.Message
	expiresAt time.Time
	seq       uint64
}

// entryHeap orders entries by expiry. Entries with the same expiry keep
// insertion order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].expiresAt.Equal(h[j].expiresAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].expiresAt.Before(h[j].expiresAt)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func (h *entryHeap) push(e *entry) {
	heap.Push(h, e)
}

// popExpired removes and returns every entry due at or before now.
func (h *entryHeap) popExpired(now time.Time) []*entry {
	var due []*entry
	for h.Len() > 0 && !(*h)[0].expiresAt.After(now) {
		due = append(due, heap.Pop(h).(*entry))
	}
	return due
}

func (h entryHeap) next() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].expiresAt, true
}
