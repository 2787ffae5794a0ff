package sink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/engine"
	"eventflow/pkg/message"
)

type recordingSink struct {
	id       int
	calls    *[]string
	contexts []*engine.MessageContext
	closeErr error
	initErr  error
	closed   bool
	flushed  bool
}

func (r *recordingSink) Init(context.Context) error {
	return r.initErr
}

func (r *recordingSink) Process(mc *engine.MessageContext) {
	*r.calls = append(*r.calls, "process")
	r.contexts = append(r.contexts, mc)
}

func (r *recordingSink) ProcessMessage(*message.Message) {
	*r.calls = append(*r.calls, "message")
}

func (r *recordingSink) Flush(context.Context) error {
	r.flushed = true
	return nil
}

func (r *recordingSink) Close(context.Context) error {
	r.closed = true
	return r.closeErr
}

func testContext(msg *message.Message) *engine.MessageContext {
	stream := engine.NewStream(engine.StreamConfig{Name: "test"})
	return engine.NewMessageContext(context.Background(), stream, "main", msg)
}

func TestFanOut_ProcessInOrderWithSameContext(t *testing.T) {
	var order []int
	var calls []string
	children := make([]*recordingSink, 3)
	fan := NewFanOut(nil)
	for i := range children {
		children[i] = &recordingSink{id: i, calls: &calls}
		fan.Add(orderedSink{recordingSink: children[i], order: &order})
	}

	mc := testContext(message.New(map[string]interface{}{"id": "1"}))
	fan.Process(mc)

	assert.Equal(t, []int{0, 1, 2}, order)
	for _, c := range children {
		require.Len(t, c.contexts, 1)
		assert.Same(t, mc, c.contexts[0])
	}
}

type orderedSink struct {
	*recordingSink
	order *[]int
}

func (o orderedSink) Process(mc *engine.MessageContext) {
	*o.order = append(*o.order, o.id)
	o.recordingSink.Process(mc)
}

func TestFanOut_CloseContinuesPastFailures(t *testing.T) {
	var calls []string
	first := &recordingSink{calls: &calls}
	second := &recordingSink{calls: &calls, closeErr: errors.New("socket closed")}
	third := &recordingSink{calls: &calls}
	fan := NewFanOut(nil, first, second, third)

	assert.NoError(t, fan.Close(context.Background()))
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.True(t, third.closed)
}

func TestFanOut_InitAndFlushAll(t *testing.T) {
	var calls []string
	first := &recordingSink{calls: &calls, initErr: errors.New("no route")}
	second := &recordingSink{calls: &calls}
	fan := NewFanOut(nil, first, second)

	err := fan.Init(context.Background())
	assert.ErrorContains(t, err, "init sink 0")

	require.NoError(t, fan.Flush(context.Background()))
	assert.True(t, first.flushed)
	assert.True(t, second.flushed)

	fan.ProcessMessage(message.Empty())
	assert.Equal(t, []string{"message", "message"}, calls)
	assert.Len(t, fan.Sinks(), 2)
}

func TestSkipFirst(t *testing.T) {
	mem := NewMemory(0)
	skip := NewSkipFirst(mem)

	for _, id := range []string{"m1", "m2", "m3"} {
		skip.Process(testContext(message.New(map[string]interface{}{"id": id})))
	}

	got := mem.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].GetString("id", ""))
	assert.Equal(t, "m3", got[1].GetString("id", ""))
}

func TestSkipFirst_SharedAcrossOverloads(t *testing.T) {
	mem := NewMemory(0)
	skip := NewSkipFirst(mem)

	skip.ProcessMessage(message.New(map[string]interface{}{"id": "m1"}))
	skip.Process(testContext(message.New(map[string]interface{}{"id": "m2"})))
	skip.ProcessMessage(message.New(map[string]interface{}{"id": "m3"}))

	got := mem.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].GetString("id", ""))
	assert.Equal(t, "m3", got[1].GetString("id", ""))
}

func TestSkipFirst_Concurrent(t *testing.T) {
	mem := NewMemory(0)
	skip := NewSkipFirst(mem)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			skip.ProcessMessage(message.Empty())
		}()
	}
	wg.Wait()

	assert.Equal(t, 19, mem.Len())
}

func TestMemory_LimitAndCopies(t *testing.T) {
	mem := NewMemory(2)
	msg := message.New(map[string]interface{}{"n": 1})

	mem.ProcessMessage(msg)
	msg.PutValue("n", 2)
	mem.ProcessMessage(msg)
	msg.PutValue("n", 3)
	mem.ProcessMessage(msg)

	got := mem.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].GetInt("n", 0))
	assert.Equal(t, 3, got[1].GetInt("n", 0))

	require.NoError(t, mem.Close(context.Background()))
	assert.True(t, mem.Closed())
}
