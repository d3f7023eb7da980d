package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer reads verification commands from a consumer group. Offsets are committed
// explicitly once the worker has handled a message, so a crash mid-batch redelivers it.
type KafkaConsumer struct {
	reader      *kafka.Reader
	fetchWindow time.Duration
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	switch {
	case len(brokers) == 0:
		return nil, errors.New("verification consumer: no kafka brokers configured")
	case groupID == "":
		return nil, errors.New("verification consumer: consumer group is required")
	case len(topics) == 0:
		return nil, errors.New("verification consumer: no command topics configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
	return &KafkaConsumer{reader: reader, fetchWindow: 300 * time.Millisecond}, nil
}

// Poll fetches up to max messages, returning early once the topic goes quiet for the fetch
// window.
func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	out := make([]Message, 0, max)
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchWindow)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return out, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return out, nil
		default:
			return out, fmt.Errorf("fetch verification command: %w", err)
		}
		out = append(out, Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       string(msg.Key),
			Payload:   msg.Value,
		})
	}
	return out, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	offsets := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		offsets = append(offsets, kafka.Message{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset})
	}
	if err := c.reader.CommitMessages(ctx, offsets...); err != nil {
		return fmt.Errorf("commit verification commands: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
