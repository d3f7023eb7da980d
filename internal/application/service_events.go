package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// HandleVerificationRequested runs an asynchronous verification command. Commands are
// deduplicated by event id. The stored submission is consumed by the attempt, so a command is
// marked processed whatever the outcome; one that failed for reasons outside the command is
// logged at error level because it will not be redelivered.
func (s *Service) HandleVerificationRequested(ctx context.Context, event contracts.EventEnvelope) error {
	if event.EventType != domain.EventVerificationRequested {
		return domain.ErrUnsupportedEventType
	}
	if err := validateEventEnvelope(event, domain.CanonicalPartitionKeyPath(event.EventType)); err != nil {
		return err
	}

	now := s.nowFn()
	dup, err := s.eventDedup.IsDuplicate(ctx, event.EventID, now)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}

	var payload contracts.VerificationRequestedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", domain.ErrInvalidInput, event.EventType, err)
	}
	if payload.EscrowID != event.PartitionKey {
		return fmt.Errorf("%w: partition key %s does not match escrow %s", domain.ErrInvalidInput, event.PartitionKey, payload.EscrowID)
	}

	out, verifyErr := s.VerifySubmission(ctx, Actor{
		SubjectID: payload.RequestedBy,
		Role:      "system",
		RequestID: event.TraceID,
	}, VerifyInput{
		EscrowID:        payload.EscrowID,
		TaskDescription: payload.TaskDescription,
		EscrowAmount:    payload.EscrowAmount,
		FileName:        payload.FileName,
		MIMEHint:        payload.MIMEHint,
		SizeBytes:       payload.SizeBytes,
		ContentRef:      payload.ContentRef,
	})
	if err := s.eventDedup.MarkProcessed(ctx, event.EventID, event.EventType, now.Add(s.cfg.EventDedupTTL)); err != nil {
		return err
	}
	if verifyErr != nil {
		if commandLost(verifyErr) {
			s.logger.ErrorContext(ctx, "verification command dropped",
				"module", "application.service",
				"layer", "application",
				"operation", "handle_verification_requested",
				"outcome", "dropped",
				"event_id", event.EventID,
				"escrow_id", payload.EscrowID,
				"content_ref", payload.ContentRef,
				"error", verifyErr,
			)
		}
		return verifyErr
	}
	s.logSuccess(ctx, "handle_verification_requested",
		"event_id", event.EventID,
		"escrow_id", payload.EscrowID,
		"verified", out.Result.Verified,
	)
	return nil
}

// commandLost reports failures caused by timeouts or infrastructure rather than by the
// command itself.
func commandLost(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindVerificationTimedOut, domain.KindInternal:
		return true
	}
	return false
}

func (s *Service) enqueueEscrowCreated(ctx context.Context, outbox ports.OutboxRepository, escrow domain.Escrow) error {
	return s.enqueue(ctx, outbox, domain.EventEscrowCreated, escrow.EscrowID, escrow.CreatedAt, contracts.EscrowCreatedPayload{
		EscrowID:     escrow.EscrowID,
		ClientID:     escrow.ClientID,
		FreelancerID: escrow.FreelancerID,
		Currency:     escrow.Currency,
		CreatedAt:    escrow.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueEscrowFunded(ctx context.Context, outbox ports.OutboxRepository, escrow domain.Escrow, fees domain.FeeBreakdown) error {
	fundedAt := s.nowFn()
	if escrow.FundedAt != nil {
		fundedAt = *escrow.FundedAt
	}
	return s.enqueue(ctx, outbox, domain.EventEscrowFunded, escrow.EscrowID, fundedAt, contracts.EscrowFundedPayload{
		EscrowID:   escrow.EscrowID,
		ClientID:   escrow.ClientID,
		Amount:     escrow.Amount,
		ClientPays: fees.ClientPays,
		Currency:   escrow.Currency,
		FundedAt:   fundedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueVerificationRecorded(ctx context.Context, outbox ports.OutboxRepository, record domain.VerificationRecord) error {
	return s.enqueue(ctx, outbox, domain.EventEscrowVerificationRecorded, record.EscrowID, record.CreatedAt, contracts.VerificationRecordedPayload{
		EscrowID:        record.EscrowID,
		VerificationID:  record.VerificationID,
		Category:        string(record.Category),
		ConfidenceScore: record.ConfidenceScore,
		Verified:        record.Verified,
		IssueCount:      len(record.Issues),
		RecordedAt:      record.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueEscrowClosed(ctx context.Context, outbox ports.OutboxRepository, escrow domain.Escrow, reason string) error {
	eventType := domain.EventEscrowReleased
	if escrow.Status == domain.EscrowStatusRefunded {
		eventType = domain.EventEscrowRefunded
	}
	closedAt := s.nowFn()
	if escrow.ClosedAt != nil {
		closedAt = *escrow.ClosedAt
	}
	return s.enqueue(ctx, outbox, eventType, escrow.EscrowID, closedAt, contracts.EscrowClosedPayload{
		EscrowID:     escrow.EscrowID,
		Status:       string(escrow.Status),
		ClientID:     escrow.ClientID,
		FreelancerID: escrow.FreelancerID,
		Amount:       escrow.Amount,
		Reason:       reason,
		ClosedAt:     closedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueSettlementCompleted(ctx context.Context, outbox ports.OutboxRepository, settlement domain.Settlement, receipt domain.SettlementReceipt) error {
	return s.enqueue(ctx, outbox, domain.EventSettlementCompleted, settlement.EscrowID, receipt.SettledAt, contracts.SettlementCompletedPayload{
		EscrowID:        settlement.EscrowID,
		SettlementID:    settlement.SettlementID,
		Action:          string(settlement.Action),
		PayeeID:         receipt.PayeeID,
		PayeeAmount:     receipt.PayeeAmount,
		PlatformAmount:  receipt.PlatformAmount,
		Currency:        receipt.Currency,
		LedgerReference: receipt.LedgerReference,
		SettledAt:       receipt.SettledAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueSettlementFailed(ctx context.Context, outbox ports.OutboxRepository, settlement domain.Settlement) error {
	return s.enqueue(ctx, outbox, domain.EventSettlementFailed, settlement.EscrowID, settlement.UpdatedAt, contracts.SettlementFailedPayload{
		EscrowID:     settlement.EscrowID,
		SettlementID: settlement.SettlementID,
		Action:       string(settlement.Action),
		Attempts:     settlement.Attempts,
		Reason:       settlement.LastError,
		FailedAt:     settlement.UpdatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueue(ctx context.Context, outbox ports.OutboxRepository, eventType, escrowID string, occurredAt time.Time, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	class := domain.CanonicalEventClass(eventType)
	return outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: class,
		Envelope: contracts.EventEnvelope{
			EventID:          uuid.NewString(),
			EventType:        eventType,
			EventClass:       class,
			OccurredAt:       occurredAt,
			PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
			PartitionKey:     escrowID,
			SourceService:    s.cfg.ServiceName,
			TraceID:          uuid.NewString(),
			SchemaVersion:    "v1",
			Data:             data,
		},
		CreatedAt: s.nowFn(),
	})
}

func validateEventEnvelope(event contracts.EventEnvelope, expectedPartitionPath string) error {
	if strings.TrimSpace(event.EventID) == "" {
		return fmt.Errorf("%w: missing event_id", domain.ErrInvalidInput)
	}
	if event.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.SourceService) == "" {
		return fmt.Errorf("%w: missing source_service", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.TraceID) == "" {
		return fmt.Errorf("%w: missing trace_id", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.SchemaVersion) == "" {
		return fmt.Errorf("%w: missing schema_version", domain.ErrInvalidInput)
	}
	if event.PartitionKeyPath != expectedPartitionPath {
		return fmt.Errorf("%w: invalid partition_key_path", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(event.PartitionKey) == "" {
		return fmt.Errorf("%w: missing partition_key", domain.ErrInvalidInput)
	}
	if len(event.Data) == 0 {
		return fmt.Errorf("%w: missing data", domain.ErrInvalidInput)
	}
	return nil
}
