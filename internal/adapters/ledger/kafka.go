package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// KafkaLedger hands settlement instructions to the downstream ledger service. Messages are keyed
// by escrow id so all instructions for one escrow stay ordered on a partition, and carry the
// idempotency key as a header for the consumer's dedup.
type KafkaLedger struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaLedger(brokers []string, topic string) (*KafkaLedger, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka ledger requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka ledger requires a topic")
	}
	return &KafkaLedger{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

func (l *KafkaLedger) Transfer(ctx context.Context, instruction domain.SettlementInstruction) (string, error) {
	payload, err := json.Marshal(instruction)
	if err != nil {
		return "", err
	}
	err = l.writer.WriteMessages(ctx, kafka.Message{
		Topic: l.topic,
		Key:   []byte(instruction.EscrowID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "idempotency_key", Value: []byte(instruction.IdempotencyKey)},
		},
		Time: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("publish settlement instruction: %w", err)
	}
	return "kafka:" + l.topic + ":" + instruction.IdempotencyKey, nil
}

func (l *KafkaLedger) Close() error {
	return l.writer.Close()
}

var _ ports.Ledger = (*KafkaLedger)(nil)
