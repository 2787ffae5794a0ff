package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/segmentio/kafka-go"

	"eventflow/internal/broker"
	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/tracing"
)

type KafkaConfig struct {
	Routing `mapstructure:",squash"`

	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	Commit  string `mapstructure:"commit"`
}

// Kafka consumes one topic through a consumer group.
//
// With the draw policy a record is committed as soon as it is handed out.
// With the completion policy a partition's offset only advances past records
// that are complete along with every record fetched before them. Requeued
// messages are handed out before new records and are never committed.
type Kafka struct {
	reader  broker.Reader
	topic   string
	policy  string
	routing Routing

	requeued requeueBuffer

	mu         sync.Mutex
	pending    map[*message.Routed]kafka.Message
	partitions map[partitionKey]*inflight
}

type partitionKey struct {
	topic     string
	partition int
}

// inflight holds the records of one partition handed out under the
// completion policy, in fetch order.
type inflight struct {
	recs deque.Deque[kafka.Message]
	done map[int64]bool
}

// complete marks offset done and pops the completed prefix. It returns the
// last popped record, which is the one to commit.
func (f *inflight) complete(offset int64) (kafka.Message, bool) {
	f.done[offset] = true
	var last kafka.Message
	advanced := false
	for f.recs.Len() > 0 && f.done[f.recs.Front().Offset] {
		last = f.recs.PopFront()
		delete(f.done, last.Offset)
		advanced = true
	}
	return last, advanced
}

func NewKafka(reader broker.Reader, cfg KafkaConfig) (*Kafka, error) {
	policy, err := commitPolicy(cfg.Commit)
	if err != nil {
		return nil, err
	}
	if err := cfg.Routing.Validate(); err != nil {
		return nil, err
	}
	return &Kafka{
		reader:  reader,
		topic:   cfg.Topic,
		policy:  policy,
		routing:    cfg.Routing,
		pending:    make(map[*message.Routed]kafka.Message),
		partitions: make(map[partitionKey]*inflight),
	}, nil
}

func (k *Kafka) IsEOF() bool {
	return false
}

func (k *Kafka) GetNextMessage(ctx context.Context, stream engine.StreamContext, waitAtMost time.Duration) *message.Routed {
	if r := k.requeued.pop(); r != nil {
		metrics.IncSourcePoll(stream.Name(), "requeued")
		return r
	}

	fetchCtx, cancel := context.WithTimeout(ctx, waitAtMost)
	defer cancel()

	rec, err := k.reader.FetchMessage(fetchCtx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		metrics.IncSourcePoll(stream.Name(), "error")
		stream.Warn(ctx, "Failed to fetch kafka message",
			"error", err,
			"topic", k.topic,
		)
		return nil
	}

	metrics.IncKafkaMessagesRead(stream.Name(), rec.Topic)
	metrics.ObserveKafkaMessageSize(stream.Name(), rec.Topic, "in", len(rec.Value))
	k.reportLag(stream.Name(), rec)

	msg, err := message.Parse(rec.Value)
	if err != nil {
		stream.Warn(ctx, "Dropping unparsable kafka record",
			"error", err,
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
		)
		if k.policy == constants.CommitOnDraw {
			k.commit(ctx, stream, rec)
			return nil
		}
		k.mu.Lock()
		k.track(rec)
		k.mu.Unlock()
		k.completeRecord(ctx, stream, rec)
		return nil
	}

	routed := k.routing.Route(msg)
	routed.Headers = tracing.HeaderMap(rec.Headers)

	if k.policy == constants.CommitOnDraw {
		k.commit(ctx, stream, rec)
		return routed
	}

	k.mu.Lock()
	k.pending[routed] = rec
	k.track(rec)
	k.mu.Unlock()
	return routed
}

// track appends rec to its partition's in-flight records. k.mu must be held.
func (k *Kafka) track(rec kafka.Message) {
	key := partitionKey{topic: rec.Topic, partition: rec.Partition}
	f, ok := k.partitions[key]
	if !ok {
		f = &inflight{done: make(map[int64]bool)}
		k.partitions[key] = f
	}
	f.recs.PushBack(rec)
}

func (k *Kafka) completeRecord(ctx context.Context, stream engine.StreamContext, rec kafka.Message) error {
	k.mu.Lock()
	f, ok := k.partitions[partitionKey{topic: rec.Topic, partition: rec.Partition}]
	if !ok {
		k.mu.Unlock()
		return nil
	}
	upTo, advanced := f.complete(rec.Offset)
	k.mu.Unlock()
	if !advanced {
		return nil
	}
	return k.commit(ctx, stream, upTo)
}

func (k *Kafka) Requeue(routed *message.Routed) error {
	k.requeued.push(routed)
	return nil
}

// MarkComplete acknowledges the record behind routed under the completion
// policy and commits its partition up to the last contiguous completed
// record. Requeued messages and the draw policy have nothing left to commit.
func (k *Kafka) MarkComplete(ctx context.Context, stream engine.StreamContext, routed *message.Routed) error {
	if k.policy != constants.CommitOnCompletion {
		return nil
	}

	k.mu.Lock()
	rec, ok := k.pending[routed]
	delete(k.pending, routed)
	k.mu.Unlock()
	if !ok {
		return nil
	}
	return k.completeRecord(ctx, stream, rec)
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	k.pending = make(map[*message.Routed]kafka.Message)
	k.partitions = make(map[partitionKey]*inflight)
	k.mu.Unlock()
	return k.reader.Close()
}

// Pending reports handed-out records still awaiting MarkComplete.
func (k *Kafka) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pending)
}

func (k *Kafka) commit(ctx context.Context, stream engine.StreamContext, rec kafka.Message) error {
	if err := k.reader.CommitMessages(ctx, rec); err != nil {
		metrics.IncSourceCommit("kafka", k.policy, "error")
		stream.Warn(ctx, "Failed to commit kafka record",
			"error", err,
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
		)
		return fmt.Errorf("commit %s/%d@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
	}
	metrics.IncSourceCommit("kafka", k.policy, "success")
	return nil
}

type statsReader interface {
	Stats() kafka.ReaderStats
}

func (k *Kafka) reportLag(stream string, rec kafka.Message) {
	sr, ok := k.reader.(statsReader)
	if !ok {
		return
	}
	metrics.SetKafkaConsumerLag(stream, rec.Topic, rec.Partition, sr.Stats().Lag)
}
