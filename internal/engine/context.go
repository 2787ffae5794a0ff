package engine

import (
	"context"

	"eventflow/pkg/logging"
	"eventflow/pkg/message"
)

// MessageContext is the per-message execution state of one traversal.
type MessageContext struct {
	ctx      context.Context
	msg      *message.Message
	stream   StreamContext
	pipeline string
	cont     bool
	depth    int
}

func NewMessageContext(ctx context.Context, stream StreamContext, pipeline string, msg *message.Message) *MessageContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithPipeline(ctx, pipeline)
	if stream != nil {
		ctx = logging.WithStream(ctx, stream.Name())
	}
	return &MessageContext{
		ctx:      ctx,
		msg:      msg,
		stream:   stream,
		pipeline: pipeline,
		cont:     true,
	}
}

// Context returns the context.Context of the traversal. Processors doing I/O
// pass it on to their clients.
func (mc *MessageContext) Context() context.Context {
	return mc.ctx
}

func (mc *MessageContext) Message() *message.Message {
	return mc.msg
}

func (mc *MessageContext) Stream() StreamContext {
	return mc.stream
}

func (mc *MessageContext) Pipeline() string {
	return mc.pipeline
}

func (mc *MessageContext) ShouldContinue() bool {
	return mc.cont
}

// Stop clears the continuation flag. It cannot be set again.
func (mc *MessageContext) Stop() {
	mc.cont = false
}

// Depth is the number of synchronous routes that led to this context.
func (mc *MessageContext) Depth() int {
	return mc.depth
}

// Derive returns a fresh context for msg entering pipeline from within the
// current traversal. Continuation starts over; depth grows by one.
func (mc *MessageContext) Derive(pipeline string, msg *message.Message) *MessageContext {
	child := NewMessageContext(mc.ctx, mc.stream, pipeline, msg)
	child.depth = mc.depth + 1
	return child
}

func (mc *MessageContext) Warn(msg string, keysAndValues ...interface{}) {
	if mc.stream == nil {
		return
	}
	mc.stream.Warn(mc.ctx, msg, keysAndValues...)
}

func (mc *MessageContext) Fail(err error) {
	if mc.stream == nil {
		return
	}
	mc.stream.Fail(err)
}

// Services returns the stream's registry, or an empty one when the context
// has no stream.
func (mc *MessageContext) Services() *Services {
	if mc.stream == nil {
		return NewServices()
	}
	return mc.stream.Services()
}

func (mc *MessageContext) Metrics() Metrics {
	if mc.stream == nil {
		return NopMetrics()
	}
	return mc.stream.Metrics()
}
