package broker

import (
	"fmt"

	"github.com/segmentio/kafka-go"

	"eventflow/internal/config"
	"eventflow/internal/constants"
	"eventflow/pkg/retry"
)

// NewReader opens a consumer-group reader on topic. An empty groupID falls
// back to the broker-wide group from cfg.
func NewReader(cfg config.KafkaConfig, topic, groupID string) (*kafka.Reader, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if groupID == "" {
		groupID = cfg.GroupID
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka group_id is required for topic %s", topic)
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: constants.KafkaMinBytes,
		MaxBytes: constants.KafkaMaxBytes,
	}), nil
}

func NewWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}, nil
}

// RetryPolicy converts the broker retry section into a retry.Policy; zero
// fields take the package defaults.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
		MaxElapsedTime:  cfg.MaxElapsedTime,
	}
}
