package processor

import (
	"eventflow/internal/engine"
	"eventflow/internal/logger"
)

// Log writes one log line through the stream logger. Message may be an
// expression; the full document is attached unless Quiet is set.
type Log struct {
	Level   string `mapstructure:"level"`
	Message string `mapstructure:"message"`
	Quiet   bool   `mapstructure:"quiet"`
}

func (p *Log) Process(mc *engine.MessageContext) {
	log := logger.NopLogger()
	if stream := mc.Stream(); stream != nil {
		log = stream.Logger()
	}

	msg := mc.Message()
	text := msg.EvalExpression(p.Message)
	if text == "" {
		text = "Message"
	}
	var kv []interface{}
	if !p.Quiet {
		kv = append(kv, "message", msg.ToLine())
	}

	ctx := mc.Context()
	switch p.Level {
	case "debug":
		log.DebugwCtx(ctx, text, kv...)
	case "warn":
		log.WarnwCtx(ctx, text, kv...)
	case "error":
		log.ErrorwCtx(ctx, text, kv...)
	default:
		log.InfowCtx(ctx, text, kv...)
	}
}

// Warn reports a stream warning with an expression-evaluated message.
type Warn struct {
	Message string `mapstructure:"message"`
}

func (p *Warn) Process(mc *engine.MessageContext) {
	mc.Warn(mc.Message().EvalExpression(p.Message))
}
