package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// VerifySubmission scores an uploaded submission against the task description and drives the
// escrow to its terminal state when the verdict allows it. At most one verification per escrow
// runs at a time, and the submission content is discarded on every exit path.
func (s *Service) VerifySubmission(ctx context.Context, actor Actor, input VerifyInput) (VerifyOutput, error) {
	defer s.discardSubmission(ctx, input.ContentRef)

	if strings.TrimSpace(actor.SubjectID) == "" {
		return VerifyOutput{}, domain.ErrUnauthorized
	}
	if err := s.validateVerifyInput(&input); err != nil {
		return VerifyOutput{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.VerificationTimeout)
	defer cancel()

	unlock, err := s.lockEscrow(ctx, input.EscrowID)
	if err != nil {
		return VerifyOutput{}, err
	}
	defer unlock()

	current, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return VerifyOutput{}, err
	}
	if actor.SubjectID != current.FreelancerID && !actor.privileged() {
		return VerifyOutput{}, fmt.Errorf("%w: only the freelancer can submit work", domain.ErrUnauthorized)
	}
	if current.Status != domain.EscrowStatusDeposited {
		return VerifyOutput{}, fmt.Errorf("%w: escrow %s is %s", domain.ErrInvalidState, current.EscrowID, current.Status)
	}
	if input.EscrowAmount != nil && *input.EscrowAmount != current.Amount {
		return VerifyOutput{}, fmt.Errorf("%w: escrow amount %d does not match funded amount %d", domain.ErrInvalidInput, *input.EscrowAmount, current.Amount)
	}

	submission := domain.Submission{
		FileName:            input.FileName,
		SizeBytes:           input.SizeBytes,
		MIMEHint:            input.MIMEHint,
		DeclaredDescription: input.TaskDescription,
		Category:            domain.Classify(input.FileName, input.MIMEHint),
		ContentRef:          input.ContentRef,
	}
	if _, ok := s.accepted[submission.Category]; !ok {
		return VerifyOutput{}, fmt.Errorf("%w: %s submissions are not accepted", domain.ErrInvalidInput, submission.Category)
	}
	if domain.IsTextBearing(submission.Category) {
		text, readErr := s.readSubmissionText(ctx, submission.ContentRef)
		switch {
		case readErr == nil:
			submission.TextContent = text
			submission.HasText = true
		case errors.Is(readErr, context.DeadlineExceeded):
			return VerifyOutput{}, fmt.Errorf("%w: reading submission content", domain.ErrVerificationTimedOut)
		case errors.Is(readErr, context.Canceled):
			return VerifyOutput{}, readErr
		default:
			s.logFailure(ctx, "read_submission", readErr, "escrow_id", current.EscrowID)
			return unreadableSubmission(current, submission.Category, readErr), nil
		}
	}

	card := s.rules.Evaluate(domain.NewScoringInput(submission.DeclaredDescription, submission.Category, submission.Text(), submission.SizeBytes))
	result := s.policy.Verify(card)

	// A cancelled or expired attempt must never reach the transition below.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return VerifyOutput{}, fmt.Errorf("%w: scoring escrow %s", domain.ErrVerificationTimedOut, current.EscrowID)
		}
		return VerifyOutput{}, err
	}
	return s.recordVerdict(ctx, current, submission, result)
}

func (s *Service) validateVerifyInput(input *VerifyInput) error {
	input.EscrowID = strings.TrimSpace(input.EscrowID)
	input.TaskDescription = strings.TrimSpace(input.TaskDescription)
	input.FileName = strings.TrimSpace(input.FileName)
	switch {
	case input.EscrowID == "":
		return fmt.Errorf("%w: escrow id is required", domain.ErrInvalidInput)
	case input.TaskDescription == "":
		return fmt.Errorf("%w: task description is required", domain.ErrInvalidInput)
	case input.FileName == "":
		return fmt.Errorf("%w: submission file is required", domain.ErrInvalidInput)
	case input.SizeBytes < 0:
		return fmt.Errorf("%w: submission size must not be negative", domain.ErrInvalidInput)
	case input.SizeBytes > s.cfg.MaxFileBytes:
		return fmt.Errorf("%w: submission exceeds %d bytes", domain.ErrInvalidInput, s.cfg.MaxFileBytes)
	case input.EscrowAmount != nil && *input.EscrowAmount <= 0:
		return fmt.Errorf("%w: escrow amount must be positive", domain.ErrInvalidAmount)
	}
	return nil
}

func (s *Service) recordVerdict(ctx context.Context, current domain.Escrow, submission domain.Submission, result domain.VerificationResult) (VerifyOutput, error) {
	now := s.nowFn()
	record := domain.VerificationRecord{
		VerificationID:  uuid.NewString(),
		EscrowID:        current.EscrowID,
		FileName:        submission.FileName,
		Category:        submission.Category,
		SizeBytes:       submission.SizeBytes,
		ConfidenceScore: result.ConfidenceScore,
		Verified:        result.Verified,
		Issues:          result.Issues,
		Strengths:       result.Strengths,
		Feedback:        result.Feedback,
		CreatedAt:       now,
	}
	next, err := current.RecordVerdict(domain.VerdictSummary{
		VerificationID:  record.VerificationID,
		Verified:        result.Verified,
		ConfidenceScore: result.ConfidenceScore,
		IssueCount:      len(result.Issues),
		RecordedAt:      now,
	}, now)
	if err != nil {
		return VerifyOutput{}, err
	}

	var action domain.SettlementAction
	switch {
	case result.Verified:
		next, err = next.Release(result, now)
		action = domain.SettlementActionRelease
	case s.cfg.AutoRefundOnRejection:
		next, err = next.Refund(domain.RefundRequest{Verdict: &result}, now)
		action = domain.SettlementActionRefund
	}
	if err != nil {
		return VerifyOutput{}, err
	}

	reason := "verification_passed"
	if action == domain.SettlementActionRefund {
		reason = "verification_rejected"
	}
	if err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.TxRepositories) error {
		if err := repos.Escrows.Update(ctx, next, current.Status); err != nil {
			return err
		}
		if err := repos.Verifications.Create(ctx, record); err != nil {
			return err
		}
		if err := s.enqueueVerificationRecorded(ctx, repos.Outbox, record); err != nil {
			return err
		}
		if action == "" {
			return nil
		}
		if err := s.enqueueEscrowClosed(ctx, repos.Outbox, next, reason); err != nil {
			return err
		}
		return repos.Settlements.Create(ctx, newPendingSettlement(next.EscrowID, action, now))
	}); err != nil {
		s.logFailure(ctx, "verify_submission", err, "escrow_id", current.EscrowID)
		return VerifyOutput{}, err
	}
	s.logSuccess(ctx, "verify_submission",
		"escrow_id", current.EscrowID,
		"category", string(submission.Category),
		"confidence_score", result.ConfidenceScore,
		"verified", result.Verified,
	)

	out := VerifyOutput{
		Escrow:   next,
		Category: submission.Category,
		Result:   result,
		Recorded: true,
		Record:   record,
	}
	if action == "" {
		return out, nil
	}

	fees, err := s.quote(next.Amount)
	if err != nil {
		return VerifyOutput{}, err
	}
	// The transition is already durable; settlement gets its own deadline so a verification
	// that finished close to its timeout still dispatches.
	receipt, err := s.settle(context.WithoutCancel(ctx), next, action)
	if err != nil {
		return VerifyOutput{}, err
	}
	out.Fees = &fees
	out.Receipt = &receipt
	return out, nil
}

func unreadableSubmission(escrow domain.Escrow, category domain.Category, cause error) VerifyOutput {
	issue := "Submission file could not be read"
	return VerifyOutput{
		Escrow:   escrow,
		Category: category,
		Result: domain.VerificationResult{
			ConfidenceScore: 0,
			Issues:          []string{issue},
			Strengths:       []string{},
			Verified:        false,
			Feedback:        fmt.Sprintf("%s: %v.", issue, cause),
		},
	}
}

// readSubmissionText races the storage read against ctx so a stalled read cannot hold the
// escrow lock past the verification deadline.
func (s *Service) readSubmissionText(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%w: submission content is missing", domain.ErrFileUnavailable)
	}
	type readResult struct {
		text string
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		text, err := s.storage.ReadText(ctx, ref, s.cfg.MaxTextBytes)
		done <- readResult{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil && !errors.Is(res.err, domain.ErrFileUnavailable) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %v", domain.ErrFileUnavailable, res.err)
		}
		return res.text, res.err
	}
}

func (s *Service) discardSubmission(ctx context.Context, ref string) {
	if strings.TrimSpace(ref) == "" || s.storage == nil {
		return
	}
	if err := s.storage.Discard(context.WithoutCancel(ctx), ref); err != nil {
		s.logFailure(ctx, "discard_submission", err, "content_ref", ref)
	}
}
