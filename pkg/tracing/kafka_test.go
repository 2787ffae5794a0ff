package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInjectExtractRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	headers := InjectTraceContext(ctx, []kafka.Header{{Key: "content-type", Value: []byte("application/json")}})
	assert.Len(t, headers, 2)

	flat := HeaderMap(headers)
	assert.Equal(t, "application/json", flat["content-type"])

	extracted := ExtractHeaders(context.Background(), flat)
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(extracted))

	ctx = context.Background()
	assert.Equal(t, ctx, ExtractHeaders(ctx, nil))
	assert.Nil(t, HeaderMap(nil))
}

func TestTraceID_Empty(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}
