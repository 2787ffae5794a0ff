package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/message"
)

type stubSource struct {
	requeued []*message.Routed
	err      error
}

func (s *stubSource) IsEOF() bool { return false }

func (s *stubSource) GetNextMessage(context.Context, StreamContext, time.Duration) *message.Routed {
	return nil
}

func (s *stubSource) Requeue(routed *message.Routed) error {
	if s.err != nil {
		return s.err
	}
	s.requeued = append(s.requeued, routed)
	return nil
}

func (s *stubSource) MarkComplete(context.Context, StreamContext, *message.Routed) error {
	return nil
}

func (s *stubSource) Close() error { return nil }

type clock struct{}

func TestStream_Requeue(t *testing.T) {
	src := &stubSource{}
	stream := NewStream(StreamConfig{
		Name:      "orders",
		Source:    src,
		Pipelines: NewPipelineSet(NewPipeline("main")),
	})

	routed := message.NewRouted(message.Empty(), "main")
	require.NoError(t, stream.Requeue(routed))
	assert.Same(t, routed, src.requeued[0])

	err := stream.Requeue(message.NewRouted(message.Empty(), "unknown"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStream_RequeueUnsupported(t *testing.T) {
	src := &stubSource{err: ErrRequeueUnsupported}
	stream := NewStream(StreamConfig{
		Name:      "bulk",
		Source:    src,
		Pipelines: NewPipelineSet(NewPipeline("main")),
	})

	err := stream.Requeue(message.NewRouted(message.Empty(), "main"))
	assert.True(t, errors.Is(err, ErrRequeueUnsupported))

	withoutSource := NewStream(StreamConfig{Name: "bare"})
	assert.True(t, apperrors.IsUnsupported(withoutSource.Requeue(message.NewRouted(message.Empty(), "main"))))
}

func TestStream_FailKeepsFirstError(t *testing.T) {
	stream := NewStream(StreamConfig{Name: "orders"})
	assert.NoError(t, stream.Err())

	stream.Fail(nil)
	assert.NoError(t, stream.Err())

	first := errors.New("first")
	stream.Fail(first)
	stream.Fail(errors.New("second"))

	err := stream.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, apperrors.ErrStreamFailed)
}

func TestStream_WarnCounts(t *testing.T) {
	stream := NewStream(StreamConfig{Name: "orders"})
	mc := NewMessageContext(context.Background(), stream, "main", message.Empty())

	mc.Warn("first")
	mc.Warn("second", "field", "x")

	assert.Equal(t, int64(2), stream.Warnings())
	assert.NoError(t, stream.Err())
}

func TestRequireService(t *testing.T) {
	stream := NewStream(StreamConfig{Name: "orders"})
	stream.Services().Register("clock", &clock{})
	stream.Services().Register("name", "value")

	mc := NewMessageContext(context.Background(), stream, "main", message.Empty())

	c, ok := RequireService[*clock](mc, "clock")
	require.True(t, ok)
	assert.NotNil(t, c)
	assert.NoError(t, stream.Err())

	_, ok = RequireService[*clock](mc, "name")
	assert.False(t, ok)
	assert.ErrorIs(t, stream.Err(), ErrServiceNotFound)
}

func TestServicesLookup(t *testing.T) {
	services := NewServices()
	services.Register("limit", 10)

	v, ok := Lookup[int](services, "limit")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = Lookup[string](services, "limit")
	assert.False(t, ok)

	_, err := Require[int](services, "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Equal(t, []string{"limit"}, services.Names())
}
