package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"gorm.io/gorm"
)

type verificationRepository struct {
	db *gorm.DB
}

func (r *verificationRepository) Create(ctx context.Context, record domain.VerificationRecord) error {
	rec, err := toVerificationModel(record)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *verificationRepository) ListByEscrow(ctx context.Context, escrowID string, limit int) ([]domain.VerificationRecord, error) {
	query := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []verificationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.VerificationRecord, 0, len(rows))
	for _, row := range rows {
		record, err := toDomainVerification(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}
