package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"gorm.io/gorm"
)

type escrowRepository struct {
	db *gorm.DB
}

func (r *escrowRepository) Create(ctx context.Context, escrow domain.Escrow) error {
	rec, err := toEscrowModel(escrow)
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

func (r *escrowRepository) GetByID(ctx context.Context, escrowID string) (domain.Escrow, error) {
	var rec escrowModel
	if err := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Escrow{}, domain.ErrNotFound
		}
		return domain.Escrow{}, err
	}
	return toDomainEscrow(rec)
}

func (r *escrowRepository) Update(ctx context.Context, escrow domain.Escrow, expected domain.EscrowStatus) error {
	rec, err := toEscrowModel(escrow)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&escrowModel{}).
		Where("escrow_id = ? AND status = ?", escrow.EscrowID, string(expected)).
		Updates(map[string]any{
			"amount":       rec.Amount,
			"currency":     rec.Currency,
			"status":       rec.Status,
			"last_verdict": rec.LastVerdict,
			"updated_at":   rec.UpdatedAt,
			"funded_at":    rec.FundedAt,
			"closed_at":    rec.ClosedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&escrowModel{}).Where("escrow_id = ?", escrow.EscrowID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: escrow %s is no longer %s", domain.ErrConflict, escrow.EscrowID, expected)
}
