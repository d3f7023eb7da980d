package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func toEscrowModel(escrow domain.Escrow) (escrowModel, error) {
	row := escrowModel{
		EscrowID:     escrow.EscrowID,
		ClientID:     escrow.ClientID,
		FreelancerID: escrow.FreelancerID,
		Amount:       escrow.Amount,
		Currency:     escrow.Currency,
		Status:       string(escrow.Status),
		CreatedAt:    escrow.CreatedAt,
		UpdatedAt:    escrow.UpdatedAt,
		FundedAt:     escrow.FundedAt,
		ClosedAt:     escrow.ClosedAt,
	}
	if escrow.LastVerdict != nil {
		raw, err := json.Marshal(escrow.LastVerdict)
		if err != nil {
			return escrowModel{}, err
		}
		verdict := string(raw)
		row.LastVerdict = &verdict
	}
	return row, nil
}

func toDomainEscrow(row escrowModel) (domain.Escrow, error) {
	escrow := domain.Escrow{
		EscrowID:     row.EscrowID,
		ClientID:     row.ClientID,
		FreelancerID: row.FreelancerID,
		Amount:       row.Amount,
		Currency:     row.Currency,
		Status:       domain.EscrowStatus(row.Status),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		FundedAt:     row.FundedAt,
		ClosedAt:     row.ClosedAt,
	}
	if row.LastVerdict != nil && *row.LastVerdict != "" {
		var verdict domain.VerdictSummary
		if err := json.Unmarshal([]byte(*row.LastVerdict), &verdict); err != nil {
			return domain.Escrow{}, fmt.Errorf("decode last verdict of escrow %s: %w", row.EscrowID, err)
		}
		escrow.LastVerdict = &verdict
	}
	return escrow, nil
}

func toVerificationModel(record domain.VerificationRecord) (verificationModel, error) {
	issues, err := json.Marshal(nonNil(record.Issues))
	if err != nil {
		return verificationModel{}, err
	}
	strengths, err := json.Marshal(nonNil(record.Strengths))
	if err != nil {
		return verificationModel{}, err
	}
	return verificationModel{
		VerificationID:  record.VerificationID,
		EscrowID:        record.EscrowID,
		FileName:        record.FileName,
		Category:        string(record.Category),
		SizeBytes:       record.SizeBytes,
		ConfidenceScore: record.ConfidenceScore,
		Verified:        record.Verified,
		Issues:          string(issues),
		Strengths:       string(strengths),
		Feedback:        record.Feedback,
		CreatedAt:       record.CreatedAt,
	}, nil
}

func toDomainVerification(row verificationModel) (domain.VerificationRecord, error) {
	record := domain.VerificationRecord{
		VerificationID:  row.VerificationID,
		EscrowID:        row.EscrowID,
		FileName:        row.FileName,
		Category:        domain.Category(row.Category),
		SizeBytes:       row.SizeBytes,
		ConfidenceScore: row.ConfidenceScore,
		Verified:        row.Verified,
		Feedback:        row.Feedback,
		CreatedAt:       row.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Issues), &record.Issues); err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("decode issues of %s: %w", row.VerificationID, err)
	}
	if err := json.Unmarshal([]byte(row.Strengths), &record.Strengths); err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("decode strengths of %s: %w", row.VerificationID, err)
	}
	return record, nil
}

func toSettlementModel(settlement domain.Settlement) (settlementModel, error) {
	row := settlementModel{
		SettlementID: settlement.SettlementID,
		EscrowID:     settlement.EscrowID,
		Action:       string(settlement.Action),
		Status:       string(settlement.Status),
		Attempts:     settlement.Attempts,
		CreatedAt:    settlement.CreatedAt,
		UpdatedAt:    settlement.UpdatedAt,
	}
	if settlement.LastError != "" {
		lastErr := settlement.LastError
		row.LastError = &lastErr
	}
	if settlement.Receipt != nil {
		raw, err := json.Marshal(settlement.Receipt)
		if err != nil {
			return settlementModel{}, err
		}
		receipt := string(raw)
		row.Receipt = &receipt
	}
	return row, nil
}

func toDomainSettlement(row settlementModel) (domain.Settlement, error) {
	settlement := domain.Settlement{
		SettlementID: row.SettlementID,
		EscrowID:     row.EscrowID,
		Action:       domain.SettlementAction(row.Action),
		Status:       domain.SettlementStatus(row.Status),
		Attempts:     row.Attempts,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastError != nil {
		settlement.LastError = *row.LastError
	}
	if row.Receipt != nil && *row.Receipt != "" {
		var receipt domain.SettlementReceipt
		if err := json.Unmarshal([]byte(*row.Receipt), &receipt); err != nil {
			return domain.Settlement{}, fmt.Errorf("decode receipt of %s: %w", row.SettlementID, err)
		}
		settlement.Receipt = &receipt
	}
	return settlement, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
