package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

type staticConsumer struct {
	messages  []Message
	committed []Message
}

func (c *staticConsumer) Poll(context.Context, int) ([]Message, error) {
	out := c.messages
	c.messages = nil
	return out, nil
}

func (c *staticConsumer) Commit(_ context.Context, msgs ...Message) error {
	c.committed = append(c.committed, msgs...)
	return nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
	err    error
}

func (h *recordingHandler) HandleVerificationRequested(_ context.Context, event contracts.EventEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func envelopeMessage(t *testing.T, eventType string) Message {
	t.Helper()
	payload, err := json.Marshal(contracts.EventEnvelope{
		EventID:      "evt-" + eventType,
		EventType:    eventType,
		OccurredAt:   time.Now().UTC(),
		PartitionKey: "esc-1",
		Data:         json.RawMessage(`{"escrow_id":"esc-1"}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return Message{Topic: eventType, Key: "esc-1", Payload: payload}
}

func TestConsumerWorkerDispatchesVerificationRequests(t *testing.T) {
	t.Parallel()

	consumer := &staticConsumer{messages: []Message{
		envelopeMessage(t, domain.EventVerificationRequested),
		envelopeMessage(t, domain.EventEscrowFunded),
		{Topic: "garbage", Payload: []byte("not json")},
	}}
	handler := &recordingHandler{}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if len(handler.events) != 1 || handler.events[0].EventType != domain.EventVerificationRequested {
		t.Fatalf("expected exactly the verification request to be handled, got %+v", handler.events)
	}
	if len(consumer.committed) != 3 {
		t.Fatalf("expected every message committed, got %d", len(consumer.committed))
	}
}

func TestConsumerWorkerSurvivesHandlerErrors(t *testing.T) {
	t.Parallel()

	consumer := &staticConsumer{messages: []Message{
		envelopeMessage(t, domain.EventVerificationRequested),
	}}
	handler := &recordingHandler{err: errors.Join(errors.New("escrow esc-1"), domain.ErrInvalidState)}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("handler errors must not stop the worker: %v", err)
	}
	if len(handler.events) != 1 {
		t.Fatalf("expected the message to be handled once")
	}
	if len(consumer.committed) != 1 {
		t.Fatalf("rejected commands must still be committed")
	}
}

func TestConsumerWorkerStopsOnTransientFailure(t *testing.T) {
	t.Parallel()

	first := envelopeMessage(t, domain.EventVerificationRequested)
	first.Offset = 1
	second := envelopeMessage(t, domain.EventVerificationRequested)
	second.Offset = 2
	consumer := &staticConsumer{messages: []Message{first, second}}
	handler := &recordingHandler{err: domain.ErrDependencyUnavailable}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, time.Second)

	if err := worker.ProcessOnce(context.Background()); !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected the transient failure to surface, got %v", err)
	}
	if len(handler.events) != 1 {
		t.Fatalf("expected the batch to stop after the first failure, handled %d", len(handler.events))
	}
	if len(consumer.committed) != 0 {
		t.Fatalf("failed command must not be committed, got %v", consumer.committed)
	}
}

func TestNoopConsumerReturnsNothing(t *testing.T) {
	t.Parallel()

	msgs, err := NewNoopConsumer().Poll(context.Background(), 10)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v %v", msgs, err)
	}
}
