package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/config"
	"eventflow/pkg/retry"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	written  []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  time.Second,
	}
}

func TestProducer_RetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := NewProducer(w, fastPolicy(3), "test", nil)

	err := p.Publish(context.Background(), "orders", []byte("k"), []byte(`{"id":1}`))
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	assert.Equal(t, "orders", w.written[0].Topic)
	assert.Equal(t, []byte("k"), w.written[0].Key)
	assert.Equal(t, []byte(`{"id":1}`), w.written[0].Value)
}

func TestProducer_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := NewProducer(w, fastPolicy(2), "test", nil)

	err := p.Publish(context.Background(), "orders", nil, []byte(`{}`))
	assert.Error(t, err)
	assert.Empty(t, w.written)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewReader_Validation(t *testing.T) {
	_, err := NewReader(config.KafkaConfig{}, "orders", "g")
	assert.Error(t, err)

	cfg := config.KafkaConfig{Brokers: []string{"localhost:9092"}}
	_, err = NewReader(cfg, "", "g")
	assert.Error(t, err)

	_, err = NewReader(cfg, "orders", "")
	assert.Error(t, err)

	cfg.GroupID = "eventflow"
	r, err := NewReader(cfg, "orders", "")
	require.NoError(t, err)
	assert.Equal(t, "eventflow", r.Config().GroupID)
	require.NoError(t, r.Close())
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(config.RetryConfig{MaxAttempts: 5, InitialInterval: time.Second})
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
}
