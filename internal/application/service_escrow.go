package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

func (s *Service) CreateEscrow(ctx context.Context, actor Actor, input CreateEscrowInput) (escrow domain.Escrow, err error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	input.ClientID = strings.TrimSpace(input.ClientID)
	if input.ClientID == "" {
		input.ClientID = actor.SubjectID
	}
	if input.ClientID != actor.SubjectID && !actor.privileged() {
		return domain.Escrow{}, fmt.Errorf("%w: escrows are opened by their client", domain.ErrUnauthorized)
	}
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}

	key := scopedKey(actor, "create_escrow")
	cached, replayed, err := replayIdempotent[domain.Escrow](ctx, s, key, hashPayload(input))
	if err != nil || replayed {
		return cached, err
	}
	defer func() {
		if err != nil {
			s.releaseIdempotent(ctx, key)
		}
	}()

	escrow, err = domain.NewEscrow(uuid.NewString(), input.ClientID, input.FreelancerID, input.Currency, s.nowFn())
	if err != nil {
		return domain.Escrow{}, err
	}
	if err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := repos.Escrows.Create(ctx, escrow); err != nil {
			return err
		}
		return s.enqueueEscrowCreated(ctx, repos.Outbox, escrow)
	}); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.completeIdempotent(ctx, key, 201, escrow); err != nil {
		return domain.Escrow{}, err
	}
	s.logSuccess(ctx, "create_escrow", "escrow_id", escrow.EscrowID)
	return escrow, nil
}

func (s *Service) GetEscrow(ctx context.Context, actor Actor, escrowID string) (domain.Escrow, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	escrow, err := s.escrows.GetByID(ctx, strings.TrimSpace(escrowID))
	if err != nil {
		return domain.Escrow{}, err
	}
	if !escrow.IsParty(actor.SubjectID) && !actor.privileged() {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	return escrow, nil
}

func (s *Service) DepositFunds(ctx context.Context, actor Actor, input DepositInput) (escrow domain.Escrow, err error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Escrow{}, domain.ErrUnauthorized
	}
	input.EscrowID = strings.TrimSpace(input.EscrowID)
	if input.EscrowID == "" {
		return domain.Escrow{}, fmt.Errorf("%w: escrow id is required", domain.ErrInvalidInput)
	}

	key := scopedKey(actor, "deposit")
	cached, replayed, err := replayIdempotent[domain.Escrow](ctx, s, key, hashPayload(input))
	if err != nil || replayed {
		return cached, err
	}
	defer func() {
		if err != nil {
			s.releaseIdempotent(ctx, key)
		}
	}()

	unlock, err := s.lockEscrow(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	defer unlock()

	current, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return domain.Escrow{}, err
	}
	escrow, err = current.Deposit(actor.SubjectID, input.Amount, s.nowFn())
	if err != nil {
		return domain.Escrow{}, err
	}
	fees, err := s.quote(escrow.Amount)
	if err != nil {
		return domain.Escrow{}, err
	}
	if err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := repos.Escrows.Update(ctx, escrow, current.Status); err != nil {
			return err
		}
		return s.enqueueEscrowFunded(ctx, repos.Outbox, escrow, fees)
	}); err != nil {
		return domain.Escrow{}, err
	}
	if err := s.completeIdempotent(ctx, key, 200, escrow); err != nil {
		return domain.Escrow{}, err
	}
	s.logSuccess(ctx, "deposit_funds", "escrow_id", escrow.EscrowID, "amount", escrow.Amount)
	return escrow, nil
}

// QuoteFees prices amount with the configured rates. A zero amount quotes the escrow's
// funded amount.
func (s *Service) QuoteFees(ctx context.Context, actor Actor, escrowID string, amount int64) (domain.FeeBreakdown, error) {
	escrow, err := s.GetEscrow(ctx, actor, escrowID)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}
	if amount == 0 {
		amount = escrow.Amount
	}
	return s.quote(amount)
}

// ReturnFunds refunds a deposited escrow after a client cancellation or when the latest
// recorded verdict rejected the submission.
func (s *Service) ReturnFunds(ctx context.Context, actor Actor, input RefundInput) (RefundOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return RefundOutput{}, domain.ErrUnauthorized
	}
	input.EscrowID = strings.TrimSpace(input.EscrowID)
	if input.EscrowID == "" {
		return RefundOutput{}, fmt.Errorf("%w: escrow id is required", domain.ErrInvalidInput)
	}
	unlock, err := s.lockEscrow(ctx, input.EscrowID)
	if err != nil {
		return RefundOutput{}, err
	}
	defer unlock()

	current, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return RefundOutput{}, err
	}
	if actor.SubjectID != current.ClientID && !actor.privileged() {
		return RefundOutput{}, fmt.Errorf("%w: only the client can request a refund", domain.ErrUnauthorized)
	}
	req := domain.RefundRequest{CallerID: actor.SubjectID, Cancel: input.Cancel}
	if input.Cancel && actor.privileged() {
		req.CallerID = current.ClientID
	}
	if !input.Cancel && current.LastVerdict != nil {
		req.Verdict = &domain.VerificationResult{
			ConfidenceScore: current.LastVerdict.ConfidenceScore,
			Verified:        current.LastVerdict.Verified,
		}
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "verification_rejected"
		if input.Cancel {
			reason = "client_cancelled"
		}
	}
	return s.refundLocked(ctx, current, req, reason)
}

func (s *Service) refundLocked(ctx context.Context, current domain.Escrow, req domain.RefundRequest, reason string) (RefundOutput, error) {
	next, err := current.Refund(req, s.nowFn())
	if err != nil {
		return RefundOutput{}, err
	}
	fees, err := s.quote(next.Amount)
	if err != nil {
		return RefundOutput{}, err
	}
	if err := s.closeEscrow(ctx, current.Status, next, domain.SettlementActionRefund, reason); err != nil {
		return RefundOutput{}, err
	}
	s.logSuccess(ctx, "return_funds", "escrow_id", next.EscrowID, "reason", reason)

	receipt, err := s.settle(ctx, next, domain.SettlementActionRefund)
	if err != nil {
		return RefundOutput{}, err
	}
	return RefundOutput{Escrow: next, Fees: fees, Receipt: receipt}, nil
}

// closeEscrow commits a terminal transition together with its closing event and the pending
// settlement row, so a closed escrow always has a settlement to dispatch or retry.
func (s *Service) closeEscrow(ctx context.Context, from domain.EscrowStatus, next domain.Escrow, action domain.SettlementAction, reason string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := repos.Escrows.Update(ctx, next, from); err != nil {
			return err
		}
		if err := s.enqueueEscrowClosed(ctx, repos.Outbox, next, reason); err != nil {
			return err
		}
		return repos.Settlements.Create(ctx, newPendingSettlement(next.EscrowID, action, s.nowFn()))
	})
}

func (s *Service) ListVerifications(ctx context.Context, actor Actor, escrowID string, limit int) ([]domain.VerificationRecord, error) {
	escrow, err := s.GetEscrow(ctx, actor, escrowID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.verifications.ListByEscrow(ctx, escrow.EscrowID, limit)
}
