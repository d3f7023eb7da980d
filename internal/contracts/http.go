package contracts

import (
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

type CreateEscrowRequest struct {
	ClientID     string `json:"client_id"`
	FreelancerID string `json:"freelancer_id"`
	Currency     string `json:"currency,omitempty"`
}

type DepositRequest struct {
	Amount int64 `json:"amount"`
}

type RefundRequest struct {
	Cancel bool   `json:"cancel"`
	Reason string `json:"reason,omitempty"`
}

type EscrowResponse struct {
	EscrowID     string                 `json:"escrow_id"`
	ClientID     string                 `json:"client_id"`
	FreelancerID string                 `json:"freelancer_id"`
	Amount       int64                  `json:"amount"`
	Currency     string                 `json:"currency"`
	Status       string                 `json:"status"`
	Step         int                    `json:"step"`
	LastVerdict  *domain.VerdictSummary `json:"last_verdict,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	FundedAt     *time.Time             `json:"funded_at,omitempty"`
	ClosedAt     *time.Time             `json:"closed_at,omitempty"`
}

func NewEscrowResponse(escrow domain.Escrow) EscrowResponse {
	return EscrowResponse{
		EscrowID:     escrow.EscrowID,
		ClientID:     escrow.ClientID,
		FreelancerID: escrow.FreelancerID,
		Amount:       escrow.Amount,
		Currency:     escrow.Currency,
		Status:       string(escrow.Status),
		Step:         escrow.Step(),
		LastVerdict:  escrow.LastVerdict,
		CreatedAt:    escrow.CreatedAt,
		UpdatedAt:    escrow.UpdatedAt,
		FundedAt:     escrow.FundedAt,
		ClosedAt:     escrow.ClosedAt,
	}
}

const (
	DecisionRejected = "REJECTED"
	DecisionVerified = "VERIFIED"
	DecisionError    = "ERROR"
)

// The decision bodies keep the camelCase field names existing clients of the verify
// endpoint already parse.

type RejectedDecision struct {
	Success         bool     `json:"success"`
	Status          string   `json:"status"`
	ConfidenceScore float64  `json:"confidenceScore"`
	Feedback        string   `json:"feedback"`
	Issues          []string `json:"issues"`
}

type VerifiedDecision struct {
	Success           bool                      `json:"success"`
	Status            string                    `json:"status"`
	ConfidenceScore   float64                   `json:"confidenceScore"`
	Feedback          string                    `json:"feedback"`
	Strengths         []string                  `json:"strengths,omitempty"`
	FeeBreakdown      domain.FeeBreakdown       `json:"feeBreakdown"`
	SettlementReceipt *domain.SettlementReceipt `json:"settlementReceipt"`
}

type ErrorDecision struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
