package memory

import (
	"context"
	"fmt"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// UnitOfWork stages writes made through its repositories and applies them only when fn
// returns nil. Reads inside fn see committed state.
type UnitOfWork struct {
	repos *Repositories
}

func NewUnitOfWork(repos *Repositories) *UnitOfWork {
	return &UnitOfWork{repos: repos}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	tx := &txLog{}
	err := fn(ctx, ports.TxRepositories{
		Escrows:       txEscrows{EscrowRepository: u.repos.Escrows, tx: tx},
		Verifications: txVerifications{VerificationRepository: u.repos.Verifications, tx: tx},
		Settlements:   txSettlements{SettlementRepository: u.repos.Settlements, tx: tx},
		Outbox:        txOutbox{OutboxRepository: u.repos.Outbox, tx: tx},
	})
	if err != nil {
		return err
	}
	return tx.commit()
}

type stagedWrite struct {
	apply func() error
	undo  func()
}

type txLog struct {
	writes []stagedWrite
}

func (l *txLog) stage(apply func() error, undo func()) {
	l.writes = append(l.writes, stagedWrite{apply: apply, undo: undo})
}

// commit applies staged writes in order and unwinds the applied ones if any write fails.
func (l *txLog) commit() error {
	for i, w := range l.writes {
		if err := w.apply(); err != nil {
			for j := i - 1; j >= 0; j-- {
				l.writes[j].undo()
			}
			return err
		}
	}
	return nil
}

type txEscrows struct {
	*EscrowRepository
	tx *txLog
}

func (r txEscrows) Create(ctx context.Context, escrow domain.Escrow) error {
	if _, err := r.EscrowRepository.GetByID(ctx, escrow.EscrowID); err == nil {
		return domain.ErrConflict
	}
	r.tx.stage(
		func() error { return r.EscrowRepository.Create(ctx, escrow) },
		func() { r.EscrowRepository.drop(escrow.EscrowID) },
	)
	return nil
}

func (r txEscrows) Update(ctx context.Context, escrow domain.Escrow, expected domain.EscrowStatus) error {
	prev, err := r.EscrowRepository.GetByID(ctx, escrow.EscrowID)
	if err != nil {
		return err
	}
	if prev.Status != expected {
		return fmt.Errorf("%w: escrow %s is %s, expected %s", domain.ErrConflict, escrow.EscrowID, prev.Status, expected)
	}
	r.tx.stage(
		func() error { return r.EscrowRepository.Update(ctx, escrow, expected) },
		func() { r.EscrowRepository.put(prev) },
	)
	return nil
}

type txVerifications struct {
	*VerificationRepository
	tx *txLog
}

func (r txVerifications) Create(ctx context.Context, record domain.VerificationRecord) error {
	r.tx.stage(
		func() error { return r.VerificationRepository.Create(ctx, record) },
		func() { r.VerificationRepository.remove(record.EscrowID, record.VerificationID) },
	)
	return nil
}

type txSettlements struct {
	*SettlementRepository
	tx *txLog
}

func (r txSettlements) Create(ctx context.Context, settlement domain.Settlement) error {
	if _, err := r.SettlementRepository.GetByEscrow(ctx, settlement.EscrowID); err == nil {
		return domain.ErrConflict
	}
	r.tx.stage(
		func() error { return r.SettlementRepository.Create(ctx, settlement) },
		func() { r.SettlementRepository.drop(settlement.EscrowID) },
	)
	return nil
}

func (r txSettlements) Update(ctx context.Context, settlement domain.Settlement) error {
	prev, err := r.SettlementRepository.GetByEscrow(ctx, settlement.EscrowID)
	if err != nil {
		return err
	}
	r.tx.stage(
		func() error { return r.SettlementRepository.Update(ctx, settlement) },
		func() { r.SettlementRepository.put(prev) },
	)
	return nil
}

type txOutbox struct {
	*OutboxRepository
	tx *txLog
}

func (r txOutbox) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	r.tx.stage(
		func() error { return r.OutboxRepository.Enqueue(ctx, record) },
		func() { r.OutboxRepository.remove(record.RecordID) },
	)
	return nil
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)
