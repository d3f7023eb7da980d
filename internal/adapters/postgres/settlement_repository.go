package postgres

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"gorm.io/gorm"
)

type settlementRepository struct {
	db *gorm.DB
}

func (r *settlementRepository) Create(ctx context.Context, settlement domain.Settlement) error {
	rec, err := toSettlementModel(settlement)
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

func (r *settlementRepository) GetByEscrow(ctx context.Context, escrowID string) (domain.Settlement, error) {
	var rec settlementModel
	if err := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Settlement{}, domain.ErrNotFound
		}
		return domain.Settlement{}, err
	}
	return toDomainSettlement(rec)
}

func (r *settlementRepository) Update(ctx context.Context, settlement domain.Settlement) error {
	rec, err := toSettlementModel(settlement)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&settlementModel{}).
		Where("escrow_id = ?", settlement.EscrowID).
		Updates(map[string]any{
			"status":     rec.Status,
			"attempts":   rec.Attempts,
			"last_error": rec.LastError,
			"receipt":    rec.Receipt,
			"updated_at": rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
