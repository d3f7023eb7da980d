package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
	"gorm.io/gorm"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ? AND expires_at > ?", key, now).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := &ports.IdempotencyRecord{
		Key: rec.IdempotencyKey, RequestHash: rec.RequestHash, ExpiresAt: rec.ExpiresAt,
	}
	if rec.ResponseCode != nil {
		out.ResponseCode = *rec.ResponseCode
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return out, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	// Expired reservations are reclaimable.
	if err := r.db.WithContext(ctx).Where("idempotency_key = ? AND expires_at <= ?", key, now).Delete(&idempotencyModel{}).Error; err != nil {
		return err
	}
	rec := idempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Status:         "reserved",
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	var existing idempotencyModel
	if getErr := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&existing).Error; getErr == nil && existing.RequestHash != requestHash {
		return domain.ErrIdempotencyConflict
	}
	return fmt.Errorf("%w: idempotency key already reserved", domain.ErrConflict)
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	payload := string(responseBody)
	return r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        "completed",
			"response_code": responseCode,
			"response_body": payload,
			"expires_at":    gorm.Expr("GREATEST(expires_at, ?)", at.Add(7*24*time.Hour)),
			"updated_at":    at,
		}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, "reserved").
		Delete(&idempotencyModel{}).Error
}
