package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes escrow events keyed by escrow id, so one escrow's history stays on a
// single partition in the order it was committed.
type KafkaPublisher struct {
	writer      *kafka.Writer
	escrowTopic map[string]string
}

func NewKafkaPublisher(brokers []string, escrowTopic map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("escrow event publisher: no kafka brokers configured")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            1,
			BatchTimeout:           20 * time.Millisecond,
			AllowAutoTopicCreation: false,
		},
		escrowTopic: escrowTopic,
	}, nil
}

// Publish refuses unkeyed events; an escrow event without an escrow id would be balanced
// onto an arbitrary partition.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, escrowID string) error {
	if strings.TrimSpace(escrowID) == "" {
		return fmt.Errorf("publish %s: missing escrow id", eventType)
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topicFor(eventType),
		Key:   []byte(escrowID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "escrow_id", Value: []byte(escrowID)},
			{Key: "content_type", Value: []byte("application/json")},
		},
		Time: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish %s for escrow %s: %w", eventType, escrowID, err)
	}
	return nil
}

// topicFor falls back to the event type as topic name.
func (p *KafkaPublisher) topicFor(eventType string) string {
	if topic := p.escrowTopic[eventType]; topic != "" {
		return topic
	}
	return eventType
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
