package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// EventRelay drains the escrow outbox onto the broker.
//
// Consumers replay an escrow from its event stream, so a record that fails to publish holds
// back every later record of the same escrow until it goes out. Other escrows keep flowing.
type EventRelay struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewEventRelay(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *EventRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EventRelay{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *EventRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "escrow event relay pass failed",
				"module", "events.event_relay",
				"layer", "adapter",
				"operation", "relay_once",
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

// RelayOnce publishes one batch of pending escrow events and reports how many went out.
func (r *EventRelay) RelayOnce(ctx context.Context) (int, error) {
	records, err := r.outbox.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	held := make(map[string]struct{})
	sent := 0
	for _, rec := range records {
		escrowID := rec.Envelope.PartitionKey
		if _, blocked := held[escrowID]; blocked {
			continue
		}
		if err := r.relay(ctx, rec); err != nil {
			held[escrowID] = struct{}{}
			r.logger.WarnContext(ctx, "escrow event held for retry",
				"module", "events.event_relay",
				"layer", "adapter",
				"operation", "relay_once",
				"outcome", "retry",
				"escrow_id", escrowID,
				"event_id", rec.Envelope.EventID,
				"event_type", rec.Envelope.EventType,
				"attempt", rec.RetryCount+1,
				"error", err,
			)
			if markErr := r.outbox.MarkFailed(ctx, rec.RecordID, err.Error(), r.now()); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := r.outbox.MarkSent(ctx, rec.RecordID, r.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *EventRelay) relay(ctx context.Context, rec ports.OutboxRecord) error {
	payload, err := json.Marshal(rec.Envelope)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, rec.Envelope.EventType, payload, rec.Envelope.PartitionKey)
}
