package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

type Config struct {
	ServiceName     string
	DefaultCurrency string

	ClientFeeRate     decimal.Decimal
	FreelancerFeeRate decimal.Decimal

	MinScore  float64
	MaxIssues int

	MaxFileBytes       int64
	MaxTextBytes       int64
	AcceptedCategories []domain.Category

	VerificationTimeout time.Duration
	SettlementTimeout   time.Duration

	AutoRefundOnRejection bool

	IdempotencyTTL time.Duration
	EventDedupTTL  time.Duration
}

// DefaultConfig is the production baseline: 1% fee on each side, verdicts at 0.6 with at most
// three issues, 50 MiB uploads and every category accepted.
func DefaultConfig() Config {
	return Config{
		ServiceName:         "M15-Verified-Escrow-Service",
		DefaultCurrency:     domain.DefaultCurrency,
		ClientFeeRate:       domain.DefaultFeeRate,
		FreelancerFeeRate:   domain.DefaultFeeRate,
		MinScore:            domain.DefaultMinScore,
		MaxIssues:           domain.DefaultMaxIssues,
		MaxFileBytes:        50 << 20,
		MaxTextBytes:        5 << 20,
		AcceptedCategories:  domain.AllCategories,
		VerificationTimeout: 30 * time.Second,
		SettlementTimeout:   15 * time.Second,
		IdempotencyTTL:      7 * 24 * time.Hour,
		EventDedupTTL:       7 * 24 * time.Hour,
	}
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) privileged() bool {
	return a.Role == "admin" || a.Role == "system"
}

type CreateEscrowInput struct {
	ClientID     string `json:"client_id"`
	FreelancerID string `json:"freelancer_id"`
	Currency     string `json:"currency"`
}

type DepositInput struct {
	EscrowID string `json:"escrow_id"`
	Amount   int64  `json:"amount"`
}

type VerifyInput struct {
	EscrowID        string
	TaskDescription string
	// EscrowAmount, when supplied by the caller, must match the funded amount.
	EscrowAmount *int64
	FileName     string
	MIMEHint     string
	SizeBytes    int64
	ContentRef   string
}

type VerifyOutput struct {
	Escrow   domain.Escrow
	Category domain.Category
	Result   domain.VerificationResult
	// Recorded is false when the submission could not be read; such a rejection is not
	// kept as the escrow's latest verdict.
	Recorded bool
	Record   domain.VerificationRecord
	Fees     *domain.FeeBreakdown
	Receipt  *domain.SettlementReceipt
}

type RefundInput struct {
	EscrowID string
	Cancel   bool
	Reason   string
}

type RefundOutput struct {
	Escrow  domain.Escrow
	Fees    domain.FeeBreakdown
	Receipt domain.SettlementReceipt
}
