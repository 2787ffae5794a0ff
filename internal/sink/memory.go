package sink

import (
	"context"
	"sync"

	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

// Memory keeps a copy of every delivered message.
type Memory struct {
	mu       sync.Mutex
	messages []*message.Message
	limit    int
	flushes  int
	closed   bool
}

// NewMemory keeps at most limit messages, dropping the oldest. A limit of
// zero keeps everything.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

func (m *Memory) Init(context.Context) error {
	return nil
}

func (m *Memory) Process(mc *engine.MessageContext) {
	m.ProcessMessage(mc.Message())
}

func (m *Memory) ProcessMessage(msg *message.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg.Clone())
	if m.limit > 0 && len(m.messages) > m.limit {
		m.messages = m.messages[len(m.messages)-m.limit:]
	}
}

func (m *Memory) Flush(context.Context) error {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close(context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Messages() []*message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*message.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
