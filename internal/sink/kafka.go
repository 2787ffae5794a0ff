package sink

import (
	"context"
	"fmt"

	"eventflow/internal/broker"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/message"
)

type KafkaConfig struct {
	Topic string `mapstructure:"topic"`
	Key   string `mapstructure:"key"`
}

// Kafka publishes each message as a JSON record. Topic and Key may contain
// ${field} expressions evaluated against the message.
type Kafka struct {
	producer *broker.Producer
	topic    string
	key      string
	reporter
}

func NewKafka(name string, producer *broker.Producer, cfg KafkaConfig, log logger.Logger) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink %s needs a topic", name)
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Kafka{
		producer: producer,
		topic:    cfg.Topic,
		key:      cfg.Key,
		reporter: reporter{name: name, log: log},
	}, nil
}

func (k *Kafka) Init(context.Context) error {
	return nil
}

func (k *Kafka) Process(mc *engine.MessageContext) {
	k.report(mc, k.publish(mc.Context(), mc.Message()))
}

func (k *Kafka) ProcessMessage(msg *message.Message) {
	k.report(nil, k.publish(context.Background(), msg))
}

func (k *Kafka) publish(ctx context.Context, msg *message.Message) error {
	var key []byte
	if k.key != "" {
		key = []byte(msg.EvalExpression(k.key))
	}
	return k.producer.Publish(ctx, msg.EvalExpression(k.topic), key, []byte(msg.ToLine()))
}

// Flush is a no-op: the writer is synchronous.
func (k *Kafka) Flush(context.Context) error {
	return nil
}

func (k *Kafka) Close(context.Context) error {
	return k.producer.Close()
}
