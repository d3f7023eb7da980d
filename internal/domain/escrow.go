package domain

import (
	"fmt"
	"strings"
	"time"
)

type EscrowStatus string

const (
	EscrowStatusNone      EscrowStatus = "none"
	EscrowStatusDeposited EscrowStatus = "deposited"
	EscrowStatusReleased  EscrowStatus = "released"
	EscrowStatusRefunded  EscrowStatus = "refunded"
)

const DefaultCurrency = "USD"

func (s EscrowStatus) Terminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

// VerdictSummary is the latest verdict recorded against a deposited escrow.
type VerdictSummary struct {
	VerificationID  string    `json:"verification_id"`
	Verified        bool      `json:"verified"`
	ConfidenceScore float64   `json:"confidence_score"`
	IssueCount      int       `json:"issue_count"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// Escrow transitions return a new value and never mutate the receiver, so an attempt that is
// abandoned before persistence leaves no trace.
type Escrow struct {
	EscrowID     string          `json:"escrow_id"`
	ClientID     string          `json:"client_id"`
	FreelancerID string          `json:"freelancer_id"`
	Amount       int64           `json:"amount"`
	Currency     string          `json:"currency"`
	Status       EscrowStatus    `json:"status"`
	LastVerdict  *VerdictSummary `json:"last_verdict,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	FundedAt     *time.Time      `json:"funded_at,omitempty"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

func NewEscrow(escrowID, clientID, freelancerID, currency string, at time.Time) (Escrow, error) {
	clientID = strings.TrimSpace(clientID)
	freelancerID = strings.TrimSpace(freelancerID)
	if strings.TrimSpace(escrowID) == "" {
		return Escrow{}, fmt.Errorf("%w: escrow id is required", ErrInvalidInput)
	}
	if clientID == "" {
		return Escrow{}, fmt.Errorf("%w: client is required", ErrInvalidParty)
	}
	if freelancerID == "" {
		return Escrow{}, fmt.Errorf("%w: freelancer is required", ErrInvalidParty)
	}
	if strings.EqualFold(clientID, freelancerID) {
		return Escrow{}, fmt.Errorf("%w: freelancer must differ from client", ErrInvalidParty)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Escrow{
		EscrowID:     escrowID,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Currency:     strings.ToUpper(currency),
		Status:       EscrowStatusNone,
		CreatedAt:    at,
		UpdatedAt:    at,
	}, nil
}

func (e Escrow) Deposit(callerID string, amount int64, at time.Time) (Escrow, error) {
	if e.Status != EscrowStatusNone {
		return Escrow{}, fmt.Errorf("%w: escrow %s is %s", ErrAlreadyFunded, e.EscrowID, e.Status)
	}
	if strings.TrimSpace(callerID) != e.ClientID {
		return Escrow{}, fmt.Errorf("%w: only the client can deposit", ErrUnauthorized)
	}
	if amount <= 0 {
		return Escrow{}, fmt.Errorf("%w: deposit must be positive, got %d", ErrInvalidAmount, amount)
	}
	next := e
	next.Amount = amount
	next.Status = EscrowStatusDeposited
	next.FundedAt = &at
	next.UpdatedAt = at
	return next, nil
}

// RecordVerdict attaches the latest verdict; it is only meaningful while funds are held.
func (e Escrow) RecordVerdict(summary VerdictSummary, at time.Time) (Escrow, error) {
	if e.Status != EscrowStatusDeposited {
		return Escrow{}, fmt.Errorf("%w: cannot record a verdict on a %s escrow", ErrInvalidState, e.Status)
	}
	next := e
	next.LastVerdict = &summary
	next.UpdatedAt = at
	return next, nil
}

func (e Escrow) Release(result VerificationResult, at time.Time) (Escrow, error) {
	if e.Status != EscrowStatusDeposited {
		return Escrow{}, fmt.Errorf("%w: cannot release a %s escrow", ErrInvalidState, e.Status)
	}
	if !result.Verified {
		return Escrow{}, fmt.Errorf("%w: release requires a verified result", ErrInvalidInput)
	}
	return e.close(EscrowStatusReleased, at), nil
}

// RefundRequest carries the justification for returning funds: either an explicit
// cancellation by the client or a rejected verdict.
type RefundRequest struct {
	CallerID string
	Cancel   bool
	Verdict  *VerificationResult
}

func (e Escrow) Refund(req RefundRequest, at time.Time) (Escrow, error) {
	if e.Status != EscrowStatusDeposited {
		return Escrow{}, fmt.Errorf("%w: cannot refund a %s escrow", ErrInvalidState, e.Status)
	}
	switch {
	case req.Cancel:
		if strings.TrimSpace(req.CallerID) != e.ClientID {
			return Escrow{}, fmt.Errorf("%w: only the client can cancel", ErrUnauthorized)
		}
	case req.Verdict == nil:
		return Escrow{}, fmt.Errorf("%w: refund requires a rejected verdict or a cancellation", ErrInvalidInput)
	case req.Verdict.Verified:
		return Escrow{}, fmt.Errorf("%w: submission was verified, funds cannot be returned", ErrInvalidState)
	}
	return e.close(EscrowStatusRefunded, at), nil
}

func (e Escrow) close(status EscrowStatus, at time.Time) Escrow {
	next := e
	next.Status = status
	next.ClosedAt = &at
	next.UpdatedAt = at
	return next
}

// Step is the view-layer progress indicator derived from the status.
func (e Escrow) Step() int {
	switch e.Status {
	case EscrowStatusNone:
		return 1
	case EscrowStatusDeposited:
		return 2
	default:
		return 3
	}
}

func (e Escrow) IsParty(subjectID string) bool {
	return subjectID != "" && (subjectID == e.ClientID || subjectID == e.FreelancerID)
}
