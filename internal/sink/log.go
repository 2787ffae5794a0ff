package sink

import (
	"context"

	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
)

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Message string `mapstructure:"message"`
}

// Log writes each message as one structured log line.
type Log struct {
	log   logger.Logger
	level string
	text  string
}

func NewLog(log logger.Logger, cfg LogConfig) *Log {
	if log == nil {
		log = logger.NopLogger()
	}
	text := cfg.Message
	if text == "" {
		text = "Message delivered"
	}
	return &Log{log: log, level: cfg.Level, text: text}
}

func (l *Log) Init(context.Context) error {
	return nil
}

func (l *Log) Process(mc *engine.MessageContext) {
	l.write(mc.Context(), mc.Message())
}

func (l *Log) ProcessMessage(msg *message.Message) {
	l.write(context.Background(), msg)
}

func (l *Log) write(ctx context.Context, msg *message.Message) {
	switch l.level {
	case "debug":
		l.log.DebugwCtx(ctx, l.text, "message", msg.ToLine())
	case "warn":
		l.log.WarnwCtx(ctx, l.text, "message", msg.ToLine())
	case "error":
		l.log.ErrorwCtx(ctx, l.text, "message", msg.ToLine())
	default:
		l.log.InfowCtx(ctx, l.text, "message", msg.ToLine())
	}
}

// Flush syncs the logger. Sync errors on terminals are not delivery
// failures and are ignored.
func (l *Log) Flush(context.Context) error {
	_ = l.log.Sync()
	return nil
}

func (l *Log) Close(context.Context) error {
	return nil
}
