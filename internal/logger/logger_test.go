package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"eventflow/pkg/logging"
)

func TestWarnwCtx_PrependsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromCore(core)

	ctx := logging.WithStream(context.Background(), "orders")
	ctx = logging.WithPipeline(ctx, "main")
	log.WarnwCtx(ctx, "field missing", "field", "status")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "field missing", entry.Message)
	assert.Equal(t, map[string]interface{}{
		"stream":   "orders",
		"pipeline": "main",
		"field":    "status",
	}, entry.ContextMap())
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewFromCore(core).With("component", "aging")

	log.Infow("started")
	log.Debugw("hidden")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "aging", logs.All()[0].ContextMap()["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("anything"))
}
