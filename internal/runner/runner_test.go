package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/engine"
	"eventflow/internal/processor"
	"eventflow/internal/sink"
	"eventflow/internal/source"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
)

func doc(id string) *message.Message {
	return message.New(map[string]interface{}{"id": id})
}

func newStream(name string, src engine.Source, out *sink.Memory, extra ...engine.Rule) *engine.Stream {
	services := engine.NewServices()
	services.Register("sink.out", out)

	rules := append(extra, engine.Rule{Then: []engine.Processor{&processor.Emit{Sink: "out"}}})
	return engine.NewStream(engine.StreamConfig{
		Name:      name,
		Source:    src,
		Pipelines: engine.NewPipelineSet(engine.NewPipeline("main", rules...)),
		Services:  services,
	})
}

func TestRunner_DrainsMemorySource(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main"})
	out := sink.NewMemory(0)
	r := New(newStream("orders", src, out), 5*time.Millisecond, nil)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, src.Push(doc(id)))
	}
	require.NoError(t, src.Close())

	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, 3, out.Len())
	assert.Equal(t, "3", out.Messages()[2].GetString("id", ""))
	assert.Equal(t, int64(3), src.Completed())

	st := r.Status()
	assert.Equal(t, StateFinished, st.State)
	assert.Equal(t, int64(3), st.Processed)
	assert.Empty(t, st.Error)
}

func TestRunner_CountsEachPollOnce(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main"})
	out := sink.NewMemory(0)
	r := New(newStream("polls-counted", src, out), 5*time.Millisecond, nil)

	for _, id := range []string{"1", "2"} {
		require.NoError(t, src.Push(doc(id)))
	}
	require.NoError(t, src.Close())
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SourcePollsTotal.WithLabelValues("polls-counted", "message")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SourcePollsTotal.WithLabelValues("polls-counted", "requeued")))
}

func TestRunner_StopsOnCancel(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main"})
	r := New(newStream("idle", src, sink.NewMemory(0)), 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, StateStopped, r.Status().State)
}

func TestRunner_StreamFailureEndsRun(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main"})
	out := sink.NewMemory(0)
	failing := engine.Rule{
		Filter: engine.FilterFunc(func(mc *engine.MessageContext) bool {
			return mc.Message().GetString("id", "") == "2"
		}),
		Then: []engine.Processor{engine.ProcessorFunc(func(mc *engine.MessageContext) {
			mc.Fail(errors.New("poison message"))
		})},
	}
	r := New(newStream("orders", src, out, failing), 5*time.Millisecond, nil)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, src.Push(doc(id)))
	}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poison message")
	assert.Equal(t, StateFailed, r.Status().State)
	assert.Equal(t, 1, src.Len())
}

func TestRunner_PanicIsWarnedAndAcknowledged(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main"})
	out := sink.NewMemory(0)
	panicky := engine.Rule{
		Filter: engine.FilterFunc(func(mc *engine.MessageContext) bool {
			return mc.Message().GetString("id", "") == "1"
		}),
		Then: []engine.Processor{engine.ProcessorFunc(func(*engine.MessageContext) {
			panic("boom")
		})},
	}
	stream := newStream("orders", src, out, panicky)
	r := New(stream, 5*time.Millisecond, nil)

	require.NoError(t, src.Push(doc("1")))
	require.NoError(t, src.Push(doc("2")))
	require.NoError(t, src.Close())

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, int64(2), src.Completed())
	assert.Equal(t, int64(1), stream.Warnings())
}

func TestRunner_UnroutedMessageWarns(t *testing.T) {
	src := source.NewMemory(source.Routing{Pipeline: "main", RoutingField: "kind"})
	out := sink.NewMemory(0)
	stream := newStream("orders", src, out)
	r := New(stream, 5*time.Millisecond, nil)

	require.NoError(t, src.Push(message.New(map[string]interface{}{"id": "1", "kind": "unknown"})))
	require.NoError(t, src.Push(doc("2")))
	require.NoError(t, src.Close())

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, int64(1), stream.Warnings())
}

func TestRunner_BulkLoadFailureFailsStream(t *testing.T) {
	src, err := source.NewBulk("test", source.Routing{Pipeline: "main"}, time.Second, func(context.Context) ([]*message.Message, error) {
		return nil, errors.New("connection refused")
	})
	require.NoError(t, err)
	r := New(newStream("bulk", src, sink.NewMemory(0)), 5*time.Millisecond, nil)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStreamFailed))
	assert.Equal(t, StateFailed, r.Status().State)
}

func TestGroup_RunsStreamsIndependently(t *testing.T) {
	okSrc, err := source.NewBulk("test", source.Routing{Pipeline: "main"}, time.Second, source.SliceLoader(doc("1"), doc("2")))
	require.NoError(t, err)
	okOut := sink.NewMemory(0)

	badSrc, err := source.NewBulk("test", source.Routing{Pipeline: "main"}, time.Second, func(context.Context) ([]*message.Message, error) {
		return nil, errors.New("unreachable")
	})
	require.NoError(t, err)

	g := NewGroup(
		New(newStream("good", okSrc, okOut), 5*time.Millisecond, nil),
		New(newStream("bad", badSrc, sink.NewMemory(0)), 5*time.Millisecond, nil),
	)

	err = g.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, okOut.Len())

	good, ok := g.Get("good")
	require.True(t, ok)
	assert.Equal(t, StateFinished, good.Status().State)

	statuses := g.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, StateFailed, statuses[1].State)
}
