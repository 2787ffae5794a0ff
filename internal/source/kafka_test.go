package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/constants"
	"eventflow/pkg/message"
)

type fakeReader struct {
	mu        sync.Mutex
	records   []kafka.Message
	fetchErr  error
	commitErr error
	committed []int64
	closed    bool
}

func (r *fakeReader) add(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range values {
		r.records = append(r.records, kafka.Message{
			Topic:   "orders",
			Offset:  int64(len(r.records) + len(r.committed)),
			Value:   []byte(v),
			Headers: []kafka.Header{{Key: "traceparent", Value: []byte("00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")}},
		})
	}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.records) > 0 {
		rec := r.records[0]
		r.records = r.records[1:]
		r.mu.Unlock()
		return rec, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestKafka_CommitOnDraw(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`{"id":"a"}`, `{"id":"b"}`)
	src, err := NewKafka(reader, KafkaConfig{Routing: Routing{Pipeline: "main"}, Topic: "orders"})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	first := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, first)
	assert.Equal(t, []int64{0}, reader.commits(), "committed before processing")
	assert.Contains(t, first.Headers, "traceparent")

	require.NoError(t, src.MarkComplete(ctx, stream, first))
	assert.Equal(t, []int64{0}, reader.commits())
	assert.False(t, src.IsEOF())
}

func TestKafka_CommitOnCompletion(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`{"id":"a"}`, `{"id":"b"}`)
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Topic:   "orders",
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	a := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	b := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Empty(t, reader.commits())
	assert.Equal(t, 2, src.Pending())

	require.NoError(t, src.MarkComplete(ctx, stream, a))
	assert.Equal(t, []int64{0}, reader.commits())
	require.NoError(t, src.MarkComplete(ctx, stream, b))
	assert.Equal(t, []int64{0, 1}, reader.commits())

	require.NoError(t, src.MarkComplete(ctx, stream, a), "second completion is a no-op")
	assert.Len(t, reader.commits(), 2)
	assert.Zero(t, src.Pending())
}

func TestKafka_CommitWaitsForEarlierRecords(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Topic:   "orders",
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	a := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	b := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	c := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, c)

	require.NoError(t, src.MarkComplete(ctx, stream, c))
	require.NoError(t, src.MarkComplete(ctx, stream, b))
	assert.Empty(t, reader.commits(), "a is still in flight")
	assert.Equal(t, 1, src.Pending())

	require.NoError(t, src.MarkComplete(ctx, stream, a))
	assert.Equal(t, []int64{2}, reader.commits(), "one commit covers the whole completed run")
	assert.Zero(t, src.Pending())
}

func TestKafka_PartitionsCommitIndependently(t *testing.T) {
	reader := &fakeReader{records: []kafka.Message{
		{Topic: "orders", Partition: 0, Offset: 7, Value: []byte(`{"id":"p0"}`)},
		{Topic: "orders", Partition: 1, Offset: 3, Value: []byte(`{"id":"p1"}`)},
	}}
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Topic:   "orders",
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	p0 := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	p1 := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, p0)
	require.NotNil(t, p1)

	require.NoError(t, src.MarkComplete(ctx, stream, p1))
	assert.Equal(t, []int64{3}, reader.commits())
	require.NoError(t, src.MarkComplete(ctx, stream, p0))
	assert.Equal(t, []int64{3, 7}, reader.commits())
}

func TestKafka_UnparsableWaitsBehindInFlight(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`{"id":"a"}`, `not json`)
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Topic:   "orders",
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	a := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, a)
	assert.Nil(t, src.GetNextMessage(ctx, stream, 10*time.Millisecond))
	assert.Empty(t, reader.commits())

	require.NoError(t, src.MarkComplete(ctx, stream, a))
	assert.Equal(t, []int64{1}, reader.commits())
}

func TestKafka_RequeuedFirstAndNeverCommitted(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`{"id":"fresh"}`)
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	requeued := message.NewRouted(doc("again"), "retry")
	require.NoError(t, stream.Requeue(requeued))

	got := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.Same(t, requeued, got)
	require.NoError(t, src.MarkComplete(ctx, stream, got))
	assert.Empty(t, reader.commits())

	fresh := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, fresh)
	assert.Equal(t, "fresh", fresh.Message.GetString("id", ""))
}

func TestKafka_UnparsableIsCommittedAndDropped(t *testing.T) {
	reader := &fakeReader{}
	reader.add(`not json`, `{"id":"ok"}`)
	src, err := NewKafka(reader, KafkaConfig{
		Routing: Routing{Pipeline: "main"},
		Commit:  constants.CommitOnCompletion,
	})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	assert.Nil(t, src.GetNextMessage(ctx, stream, 10*time.Millisecond))
	assert.Equal(t, []int64{0}, reader.commits())
	assert.Equal(t, int64(1), stream.Warnings())

	ok := src.GetNextMessage(ctx, stream, 10*time.Millisecond)
	require.NotNil(t, ok)
	assert.Equal(t, "ok", ok.Message.GetString("id", ""))
}

func TestKafka_EmptyAndErrors(t *testing.T) {
	reader := &fakeReader{}
	src, err := NewKafka(reader, KafkaConfig{Routing: Routing{Pipeline: "main"}})
	require.NoError(t, err)
	stream := newStream(src)
	ctx := context.Background()

	assert.Nil(t, src.GetNextMessage(ctx, stream, 5*time.Millisecond))
	assert.Zero(t, stream.Warnings())

	reader.fetchErr = errors.New("broker down")
	assert.Nil(t, src.GetNextMessage(ctx, stream, 5*time.Millisecond))
	assert.Equal(t, int64(1), stream.Warnings())

	reader.fetchErr = nil
	reader.commitErr = errors.New("rebalance")
	reader.add(`{"id":"x"}`)
	assert.NotNil(t, src.GetNextMessage(ctx, stream, 5*time.Millisecond))
	assert.Equal(t, int64(2), stream.Warnings())

	require.NoError(t, src.Close())
	assert.True(t, reader.closed)
}

func TestKafka_RejectsUnknownPolicy(t *testing.T) {
	_, err := NewKafka(&fakeReader{}, KafkaConfig{Routing: Routing{Pipeline: "main"}, Commit: "never"})
	assert.Error(t, err)
}
