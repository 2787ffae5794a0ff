package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"eventflow/internal/logger"
	"eventflow/pkg/metrics"
	"eventflow/pkg/retry"
	"eventflow/pkg/tracing"
)

// Producer publishes records through a Writer, retrying transient write
// failures with the configured backoff policy.
type Producer struct {
	writer  Writer
	policy  retry.Policy
	service string
	logger  logger.Logger
}

func NewProducer(writer Writer, policy retry.Policy, service string, log logger.Logger) *Producer {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Producer{
		writer:  writer,
		policy:  policy,
		service: service,
		logger:  log,
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	headers := tracing.InjectTraceContext(ctx, []kafka.Header{})

	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}

	start := time.Now()
	err := retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.writer.WriteMessages(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(p.service, topic).Inc()
		p.logger.WarnwCtx(ctx, "Retrying kafka write",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.ObserveKafkaWriteDuration(p.service, topic, time.Since(start))
	metrics.IncKafkaMessagesWritten(p.service, topic)
	metrics.ObserveKafkaMessageSize(p.service, topic, "out", len(value))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
