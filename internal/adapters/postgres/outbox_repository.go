package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	envelope, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}
	rec := outboxModel{
		OutboxID:     record.RecordID,
		EventType:    record.Envelope.EventType,
		EventClass:   record.EventClass,
		PartitionKey: record.Envelope.PartitionKey,
		Envelope:     string(envelope),
		CreatedAt:    record.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(row.Envelope), &envelope); err != nil {
			return nil, fmt.Errorf("decode outbox envelope %s: %w", row.OutboxID, err)
		}
		record := ports.OutboxRecord{
			RecordID: row.OutboxID, EventClass: row.EventClass, Envelope: envelope,
			CreatedAt: row.CreatedAt, SentAt: row.PublishedAt, RetryCount: row.RetryCount,
			LastErrorAt: row.LastErrorAt,
		}
		if row.LastError != nil {
			record.LastError = *row.LastError
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", recordID).Update("published_at", at).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, recordID, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", recordID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	}).Error
}
