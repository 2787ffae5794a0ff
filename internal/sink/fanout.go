package sink

import (
	"context"
	"errors"
	"fmt"

	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
)

// FanOut delivers every message to each child sink in registration order.
type FanOut struct {
	sinks []engine.Sink
	log   logger.Logger
}

func NewFanOut(log logger.Logger, sinks ...engine.Sink) *FanOut {
	if log == nil {
		log = logger.NopLogger()
	}
	return &FanOut{sinks: sinks, log: log}
}

func (f *FanOut) Add(s engine.Sink) {
	f.sinks = append(f.sinks, s)
}

func (f *FanOut) Sinks() []engine.Sink {
	out := make([]engine.Sink, len(f.sinks))
	copy(out, f.sinks)
	return out
}

// Init initializes every child and reports all failures together.
func (f *FanOut) Init(ctx context.Context) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Init(ctx); err != nil {
			errs = append(errs, fmt.Errorf("init sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FanOut) Process(mc *engine.MessageContext) {
	for _, s := range f.sinks {
		s.Process(mc)
	}
}

func (f *FanOut) ProcessMessage(msg *message.Message) {
	for _, s := range f.sinks {
		s.ProcessMessage(msg)
	}
}

func (f *FanOut) Flush(ctx context.Context) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every child. Failures are logged and never stop the
// remaining children from closing.
func (f *FanOut) Close(ctx context.Context) error {
	for i, s := range f.sinks {
		if err := s.Close(ctx); err != nil {
			f.log.ErrorwCtx(ctx, "Failed to close sink",
				"index", i,
				"error", err,
			)
		}
	}
	return nil
}
