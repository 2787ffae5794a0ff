package sink

import (
	"context"
	"sync/atomic"

	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

// SkipFirst swallows the first message it sees, through either Process
// overload, and forwards every later one. It cannot be reset.
type SkipFirst struct {
	sink    engine.Sink
	skipped atomic.Bool
}

func NewSkipFirst(s engine.Sink) *SkipFirst {
	return &SkipFirst{sink: s}
}

func (s *SkipFirst) Init(ctx context.Context) error {
	return s.sink.Init(ctx)
}

func (s *SkipFirst) Process(mc *engine.MessageContext) {
	if s.skipped.CompareAndSwap(false, true) {
		return
	}
	s.sink.Process(mc)
}

func (s *SkipFirst) ProcessMessage(msg *message.Message) {
	if s.skipped.CompareAndSwap(false, true) {
		return
	}
	s.sink.ProcessMessage(msg)
}

func (s *SkipFirst) Flush(ctx context.Context) error {
	return s.sink.Flush(ctx)
}

func (s *SkipFirst) Close(ctx context.Context) error {
	return s.sink.Close(ctx)
}
