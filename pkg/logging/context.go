package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	StreamKey      = "stream"
	PipelineKey    = "pipeline"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, contextKey(MessageIDKey), messageID)
}

func WithStream(ctx context.Context, stream string) context.Context {
	return context.WithValue(ctx, contextKey(StreamKey), stream)
}

func WithPipeline(ctx context.Context, pipeline string) context.Context {
	return context.WithValue(ctx, contextKey(PipelineKey), pipeline)
}

func GetTraceID(ctx context.Context) string {
	return value(ctx, TraceIDKey)
}

func GetServiceName(ctx context.Context) string {
	return value(ctx, ServiceNameKey)
}

func GetStream(ctx context.Context) string {
	return value(ctx, StreamKey)
}

// GetLogFields returns the key/value pairs stored on ctx, in a fixed order,
// ready to be passed to a sugared logger.
func GetLogFields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}

	fields := make([]interface{}, 0, 10)
	for _, key := range []string{TraceIDKey, MessageIDKey, ServiceNameKey, StreamKey, PipelineKey} {
		if v := value(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}
	return fields
}

func value(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}
