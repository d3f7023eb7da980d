package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Payload   []byte
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// VerificationHandler is the slice of the application service the consumer drives.
type VerificationHandler interface {
	HandleVerificationRequested(ctx context.Context, event contracts.EventEnvelope) error
}

type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  VerificationHandler
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler VerificationHandler, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce handles one polled batch. Handled messages are committed, including commands
// the service rejected; a transient failure stops the batch so the rest is redelivered.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	handled := make([]Message, 0, len(msgs))
	var stopErr error
	for _, msg := range msgs {
		if err := w.handle(ctx, msg); err != nil {
			stopErr = err
			break
		}
		handled = append(handled, msg)
	}
	if err := w.consumer.Commit(context.WithoutCancel(ctx), handled...); err != nil {
		return err
	}
	return stopErr
}

// handle returns an error only when the message should be retried.
func (w *ConsumerWorker) handle(ctx context.Context, msg Message) error {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		w.logger.WarnContext(ctx, "dropping undecodable message",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "decode",
			"outcome", "failure",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if envelope.EventType != domain.EventVerificationRequested {
		return nil
	}
	err := w.handler.HandleVerificationRequested(ctx, envelope)
	if err == nil {
		return nil
	}
	if retryable(err) {
		return err
	}
	w.logger.WarnContext(ctx, "verification command rejected",
		"module", "events.consumer_worker",
		"layer", "adapter",
		"operation", "handle",
		"outcome", "failure",
		"event_id", envelope.EventID,
		"escrow_id", envelope.PartitionKey,
		"error_kind", domain.KindOf(err),
		"error", err,
	)
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrDependencyUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
