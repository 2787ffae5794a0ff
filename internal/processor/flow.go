package processor

import (
	"errors"
	"time"

	"eventflow/internal/aging"
	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

var errNoStream = errors.New("message context has no stream")

// Drop ends the traversal.
type Drop struct{}

func (Drop) Process(mc *engine.MessageContext) {
	mc.Stop()
}

// Route runs the message through another pipeline of the same stream on the
// current goroutine and then ends the current traversal. Pipeline may be an
// expression. Routing deeper than MaxDepth is refused with a warning.
type Route struct {
	Pipeline string `mapstructure:"pipeline"`
	MaxDepth int    `mapstructure:"max_depth"`
}

func (p *Route) Process(mc *engine.MessageContext) {
	defer mc.Stop()

	stream := mc.Stream()
	if stream == nil {
		mc.Fail(errNoStream)
		return
	}

	target := mc.Message().EvalExpression(p.Pipeline)
	pipeline, ok := stream.Pipeline(target)
	if !ok {
		mc.Warn("route target pipeline not defined", "target", target)
		return
	}

	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = constants.DefaultMaxRouteDepth
	}
	if mc.Depth() >= maxDepth {
		mc.Warn("route depth exceeded, message dropped", "target", target, "max_depth", maxDepth)
		return
	}

	mc.Metrics().Counter("processor", "route", target).Inc()
	pipeline.Process(mc.Derive(target, mc.Message()))
}

// Requeue hands a copy of the message back to the stream's source, bound
// for Pipeline, and ends the current traversal.
type Requeue struct {
	Pipeline string `mapstructure:"pipeline"`
}

func (p *Requeue) Process(mc *engine.MessageContext) {
	defer mc.Stop()

	stream := mc.Stream()
	if stream == nil {
		mc.Fail(errNoStream)
		return
	}

	target := mc.Message().EvalExpression(p.Pipeline)
	if err := stream.Requeue(message.NewRouted(mc.Message().Clone(), target)); err != nil {
		mc.Warn("requeue failed, message dropped", "target", target, "error", err)
		return
	}
	mc.Metrics().Counter("processor", "requeue", target).Inc()
}

// Age parks the message on a named aging queue for Delay and ends the
// current traversal. The queue redelivers into its own on-complete pipeline.
type Age struct {
	Queue string        `mapstructure:"queue"`
	Delay time.Duration `mapstructure:"delay"`
}

func (p *Age) Process(mc *engine.MessageContext) {
	defer mc.Stop()

	queue, ok := engine.RequireService[*aging.Aging](mc, constants.ServicePrefixAging+p.Queue)
	if !ok {
		return
	}
	id, err := queue.StartAging(mc, p.Delay)
	if err != nil {
		mc.Warn("aging failed, message dropped", "queue", p.Queue, "error", err)
		return
	}
	mc.Metrics().Counter("processor", "age", p.Queue).Inc()
	mc.Stream().Logger().DebugwCtx(mc.Context(), "Message aged", "queue", p.Queue, "entry_id", id, "delay", p.Delay)
}

// Emit delivers the message to a named sink. The traversal continues.
type Emit struct {
	Sink string `mapstructure:"sink"`
}

func (p *Emit) Process(mc *engine.MessageContext) {
	sink, ok := engine.RequireService[engine.Sink](mc, constants.ServicePrefixSink+p.Sink)
	if !ok {
		return
	}
	start := time.Now()
	sink.Process(mc)
	engine.Since(mc.Metrics().Timer("processor", "emit", p.Sink), start)
}
