package domain

import (
	"fmt"
	"time"
)

type SettlementAction string

const (
	SettlementActionRelease SettlementAction = "release"
	SettlementActionRefund  SettlementAction = "refund"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusCompleted SettlementStatus = "completed"
	SettlementStatusFailed    SettlementStatus = "failed"
)

// ActionForStatus maps a terminal escrow status to the settlement it requires.
func ActionForStatus(status EscrowStatus) (SettlementAction, bool) {
	switch status {
	case EscrowStatusReleased:
		return SettlementActionRelease, true
	case EscrowStatusRefunded:
		return SettlementActionRefund, true
	default:
		return "", false
	}
}

type SettlementReceipt struct {
	ReceiptID       string           `json:"receipt_id"`
	EscrowID        string           `json:"escrow_id"`
	Action          SettlementAction `json:"action"`
	PayeeID         string           `json:"payee_id"`
	PayeeAmount     int64            `json:"payee_amount"`
	PlatformAmount  int64            `json:"platform_amount"`
	Currency        string           `json:"currency"`
	LedgerReference string           `json:"ledger_reference"`
	SettledAt       time.Time        `json:"settled_at"`
}

// Settlement is the dispatcher's idempotency record; there is at most one per escrow.
type Settlement struct {
	SettlementID string             `json:"settlement_id"`
	EscrowID     string             `json:"escrow_id"`
	Action       SettlementAction   `json:"action"`
	Status       SettlementStatus   `json:"status"`
	Attempts     int                `json:"attempts"`
	LastError    string             `json:"last_error,omitempty"`
	Receipt      *SettlementReceipt `json:"receipt,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SettlementInstruction is what the external ledger is asked to move.
type SettlementInstruction struct {
	IdempotencyKey string           `json:"idempotency_key"`
	EscrowID       string           `json:"escrow_id"`
	Action         SettlementAction `json:"action"`
	PayeeID        string           `json:"payee_id"`
	PayeeAmount    int64            `json:"payee_amount"`
	PlatformAmount int64            `json:"platform_amount"`
	Currency       string           `json:"currency"`
}

func SettlementKey(escrowID string, action SettlementAction) string {
	return escrowID + ":" + string(action)
}

// BuildInstruction applies the fee attribution rule: a release pays the freelancer net of their
// fee and the platform keeps both fees; a refund returns everything the client paid.
func BuildInstruction(escrow Escrow, action SettlementAction, fees FeeBreakdown) (SettlementInstruction, error) {
	if fees.RawAmount != escrow.Amount {
		return SettlementInstruction{}, fmt.Errorf("%w: fee breakdown for %d does not match escrow amount %d", ErrInvalidInput, fees.RawAmount, escrow.Amount)
	}
	if err := fees.Validate(); err != nil {
		return SettlementInstruction{}, err
	}
	out := SettlementInstruction{
		IdempotencyKey: SettlementKey(escrow.EscrowID, action),
		EscrowID:       escrow.EscrowID,
		Action:         action,
		Currency:       escrow.Currency,
	}
	switch action {
	case SettlementActionRelease:
		out.PayeeID = escrow.FreelancerID
		out.PayeeAmount = fees.FreelancerReceives
		out.PlatformAmount = fees.PlatformTake()
	case SettlementActionRefund:
		out.PayeeID = escrow.ClientID
		out.PayeeAmount = fees.ClientPays
	default:
		return SettlementInstruction{}, fmt.Errorf("%w: unknown settlement action %q", ErrInvalidInput, action)
	}
	return out, nil
}
