package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const Topic = "notification_events"

var ErrQueueClosed = errors.New("notification queue closed")

// Ack confirms an intent was handled and may be forgotten.
type Ack func(ctx context.Context) error

type Source interface {
	Next(ctx context.Context) (Intent, Ack, error)
}

type KafkaQueue struct {
	producer *mykafka.Producer
	topic    string
}

func NewKafkaQueue(p *mykafka.Producer, topic string) *KafkaQueue {
	if topic == "" {
		topic = Topic
	}
	return &KafkaQueue{producer: p, topic: topic}
}

// Publish keys by recipient so one person's mail stays in order.
func (q *KafkaQueue) Publish(ctx context.Context, in Intent) error {
	return q.producer.PublishEvent(ctx, q.topic, in.To, in)
}

type KafkaSource struct {
	reader mykafka.MessageReader
}

func NewKafkaSource(r mykafka.MessageReader) *KafkaSource {
	return &KafkaSource{reader: r}
}

// Next skips and commits messages that do not decode.
func (s *KafkaSource) Next(ctx context.Context) (Intent, Ack, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			return Intent{}, nil, fmt.Errorf("fetch: %w", err)
		}

		var in Intent
		if err := json.Unmarshal(msg.Value, &in); err != nil || in.To == "" {
			logging.FromContext(ctx).Warn("notify_message_skipped",
				"reason", "decode", "offset", msg.Offset, "partition", msg.Partition, "error", err)
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				return Intent{}, nil, fmt.Errorf("commit: %w", err)
			}
			continue
		}

		ack := func(ctx context.Context) error {
			return s.reader.CommitMessages(ctx, msg)
		}
		return in, ack, nil
	}
}

func (s *KafkaSource) Close() error { return s.reader.Close() }

// MemoryQueue is the in-process queue used when no brokers are configured.
// Publish blocks once the buffer is full until a worker catches up or ctx
// expires.
type MemoryQueue struct {
	ch   chan Intent
	done chan struct{}
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 128
	}
	return &MemoryQueue{ch: make(chan Intent, size), done: make(chan struct{})}
}

func (q *MemoryQueue) Publish(ctx context.Context, in Intent) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- in:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next drains buffered intents before reporting the queue closed.
func (q *MemoryQueue) Next(ctx context.Context) (Intent, Ack, error) {
	select {
	case in := <-q.ch:
		return in, nil, nil
	default:
	}
	select {
	case in := <-q.ch:
		return in, nil, nil
	case <-q.done:
		return Intent{}, nil, ErrQueueClosed
	case <-ctx.Done():
		return Intent{}, nil, ctx.Err()
	}
}

// Close stops accepting intents. Close must be called once.
func (q *MemoryQueue) Close() { close(q.done) }

func (q *MemoryQueue) Len() int { return len(q.ch) }
