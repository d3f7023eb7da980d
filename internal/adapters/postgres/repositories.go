package postgres

import (
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Escrows       ports.EscrowRepository
	Verifications ports.VerificationRepository
	Settlements   ports.SettlementRepository
	Idempotency   ports.IdempotencyRepository
	EventDedup    ports.EventDedupRepository
	Outbox        ports.OutboxRepository
	UnitOfWork    ports.UnitOfWork
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Escrows:       &escrowRepository{db: db},
		Verifications: &verificationRepository{db: db},
		Settlements:   &settlementRepository{db: db},
		Idempotency:   &idempotencyRepository{db: db},
		EventDedup:    &eventDedupRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		UnitOfWork:    &unitOfWork{db: db},
	}
}

var (
	_ ports.EscrowRepository       = (*escrowRepository)(nil)
	_ ports.VerificationRepository = (*verificationRepository)(nil)
	_ ports.SettlementRepository   = (*settlementRepository)(nil)
	_ ports.IdempotencyRepository  = (*idempotencyRepository)(nil)
	_ ports.EventDedupRepository   = (*eventDedupRepository)(nil)
	_ ports.OutboxRepository       = (*outboxRepository)(nil)
	_ ports.UnitOfWork             = (*unitOfWork)(nil)
)
