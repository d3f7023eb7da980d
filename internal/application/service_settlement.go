package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// Settle dispatches the settlement for an escrow that already reached the terminal status
// matching action. fees must equal the breakdown the configured rates give for the escrow's
// funded amount. Repeating a completed settlement returns the original receipt without
// touching the ledger.
func (s *Service) Settle(ctx context.Context, actor Actor, escrowID string, action domain.SettlementAction, fees domain.FeeBreakdown) (domain.SettlementReceipt, error) {
	if !actor.privileged() {
		return domain.SettlementReceipt{}, fmt.Errorf("%w: settlement is dispatched by the platform", domain.ErrUnauthorized)
	}
	escrowID = strings.TrimSpace(escrowID)
	unlock, err := s.lockEscrow(ctx, escrowID)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	defer unlock()

	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	quoted, err := s.quote(escrow.Amount)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	if !fees.Equal(quoted) {
		s.logFailure(ctx, "settle", domain.ErrInvalidInput,
			"escrow_id", escrow.EscrowID,
			"action", string(action),
			"claimed_payee_amount", fees.FreelancerReceives,
		)
		return domain.SettlementReceipt{}, fmt.Errorf("%w: fee breakdown does not match the quote for escrow %s", domain.ErrInvalidInput, escrow.EscrowID)
	}
	return s.settle(ctx, escrow, action)
}

// RetrySettlement replays only the settlement step for an escrow whose terminal transition
// already happened. Scoring is never re-run.
func (s *Service) RetrySettlement(ctx context.Context, actor Actor, escrowID string) (domain.SettlementReceipt, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.SettlementReceipt{}, domain.ErrUnauthorized
	}
	escrowID = strings.TrimSpace(escrowID)
	unlock, err := s.lockEscrow(ctx, escrowID)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	defer unlock()

	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	if !escrow.IsParty(actor.SubjectID) && !actor.privileged() {
		return domain.SettlementReceipt{}, domain.ErrUnauthorized
	}
	action, ok := domain.ActionForStatus(escrow.Status)
	if !ok {
		return domain.SettlementReceipt{}, fmt.Errorf("%w: escrow %s is %s and has nothing to settle", domain.ErrInvalidState, escrow.EscrowID, escrow.Status)
	}
	return s.settle(ctx, escrow, action)
}

func (s *Service) GetSettlement(ctx context.Context, actor Actor, escrowID string) (domain.Settlement, error) {
	escrow, err := s.GetEscrow(ctx, actor, escrowID)
	if err != nil {
		return domain.Settlement{}, err
	}
	return s.settlements.GetByEscrow(ctx, escrow.EscrowID)
}

func newPendingSettlement(escrowID string, action domain.SettlementAction, at time.Time) domain.Settlement {
	return domain.Settlement{
		SettlementID: uuid.NewString(),
		EscrowID:     escrowID,
		Action:       action,
		Status:       domain.SettlementStatusPending,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// settle must be called with the escrow lock held. Fees are always recomputed from the funded
// amount and the configured rates.
func (s *Service) settle(ctx context.Context, escrow domain.Escrow, action domain.SettlementAction) (domain.SettlementReceipt, error) {
	if want, ok := domain.ActionForStatus(escrow.Status); !ok || want != action {
		return domain.SettlementReceipt{}, fmt.Errorf("%w: cannot %s a %s escrow", domain.ErrInvalidState, action, escrow.Status)
	}
	fees, err := s.quote(escrow.Amount)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}
	instruction, err := domain.BuildInstruction(escrow, action, fees)
	if err != nil {
		return domain.SettlementReceipt{}, err
	}

	settlement, err := s.settlements.GetByEscrow(ctx, escrow.EscrowID)
	switch {
	case err == nil:
		if settlement.Action != action {
			return domain.SettlementReceipt{}, fmt.Errorf("%w: escrow %s was already settled as %s", domain.ErrInvalidState, escrow.EscrowID, settlement.Action)
		}
		if settlement.Status == domain.SettlementStatusCompleted && settlement.Receipt != nil {
			return *settlement.Receipt, nil
		}
	case errors.Is(err, domain.ErrNotFound):
		settlement = newPendingSettlement(escrow.EscrowID, action, s.nowFn())
		if err := s.settlements.Create(ctx, settlement); err != nil {
			return domain.SettlementReceipt{}, err
		}
	default:
		return domain.SettlementReceipt{}, err
	}

	settlement.Attempts++
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SettlementTimeout)
	reference, transferErr := s.ledger.Transfer(callCtx, instruction)
	cancel()

	now := s.nowFn()
	settlement.UpdatedAt = now
	if transferErr != nil {
		settlement.Status = domain.SettlementStatusFailed
		settlement.LastError = transferErr.Error()
		if err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
			if err := repos.Settlements.Update(ctx, settlement); err != nil {
				return err
			}
			return s.enqueueSettlementFailed(ctx, repos.Outbox, settlement)
		}); err != nil {
			return domain.SettlementReceipt{}, err
		}
		s.logFailure(ctx, "settle", transferErr,
			"escrow_id", escrow.EscrowID,
			"action", string(action),
			"attempts", settlement.Attempts,
		)
		return domain.SettlementReceipt{}, fmt.Errorf("%w: %s escrow %s: %v", domain.ErrSettlementFailed, action, escrow.EscrowID, transferErr)
	}

	receipt := domain.SettlementReceipt{
		ReceiptID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(instruction.IdempotencyKey)).String(),
		EscrowID:        escrow.EscrowID,
		Action:          action,
		PayeeID:         instruction.PayeeID,
		PayeeAmount:     instruction.PayeeAmount,
		PlatformAmount:  instruction.PlatformAmount,
		Currency:        instruction.Currency,
		LedgerReference: reference,
		SettledAt:       now,
	}
	settlement.Status = domain.SettlementStatusCompleted
	settlement.LastError = ""
	settlement.Receipt = &receipt
	if err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := repos.Settlements.Update(ctx, settlement); err != nil {
			return err
		}
		return s.enqueueSettlementCompleted(ctx, repos.Outbox, settlement, receipt)
	}); err != nil {
		return domain.SettlementReceipt{}, err
	}
	s.logSuccess(ctx, "settle",
		"escrow_id", escrow.EscrowID,
		"action", string(action),
		"payee_amount", receipt.PayeeAmount,
		"attempts", settlement.Attempts,
	)
	return receipt, nil
}
