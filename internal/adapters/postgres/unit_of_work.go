package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
	"gorm.io/gorm"
)

type unitOfWork struct {
	db *gorm.DB
}

// WithinTx binds the escrow, verification, settlement and outbox repositories to a single
// transaction so a state transition and the rows describing it commit together.
func (u *unitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, ports.TxRepositories{
			Escrows:       &escrowRepository{db: tx},
			Verifications: &verificationRepository{db: tx},
			Settlements:   &settlementRepository{db: tx},
			Outbox:        &outboxRepository{db: tx},
		})
	})
}
