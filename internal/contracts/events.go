package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type EscrowCreatedPayload struct {
	EscrowID     string `json:"escrow_id"`
	ClientID     string `json:"client_id"`
	FreelancerID string `json:"freelancer_id"`
	Currency     string `json:"currency"`
	CreatedAt    string `json:"created_at"`
}

type EscrowFundedPayload struct {
	EscrowID   string `json:"escrow_id"`
	ClientID   string `json:"client_id"`
	Amount     int64  `json:"amount"`
	ClientPays int64  `json:"client_pays"`
	Currency   string `json:"currency"`
	FundedAt   string `json:"funded_at"`
}

type VerificationRecordedPayload struct {
	EscrowID        string  `json:"escrow_id"`
	VerificationID  string  `json:"verification_id"`
	Category        string  `json:"category"`
	ConfidenceScore float64 `json:"confidence_score"`
	Verified        bool    `json:"verified"`
	IssueCount      int     `json:"issue_count"`
	RecordedAt      string  `json:"recorded_at"`
}

type EscrowClosedPayload struct {
	EscrowID     string `json:"escrow_id"`
	Status       string `json:"status"`
	ClientID     string `json:"client_id"`
	FreelancerID string `json:"freelancer_id"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason,omitempty"`
	ClosedAt     string `json:"closed_at"`
}

type SettlementCompletedPayload struct {
	EscrowID        string `json:"escrow_id"`
	SettlementID    string `json:"settlement_id"`
	Action          string `json:"action"`
	PayeeID         string `json:"payee_id"`
	PayeeAmount     int64  `json:"payee_amount"`
	PlatformAmount  int64  `json:"platform_amount"`
	Currency        string `json:"currency"`
	LedgerReference string `json:"ledger_reference"`
	SettledAt       string `json:"settled_at"`
}

type SettlementFailedPayload struct {
	EscrowID     string `json:"escrow_id"`
	SettlementID string `json:"settlement_id"`
	Action       string `json:"action"`
	Attempts     int    `json:"attempts"`
	Reason       string `json:"reason"`
	FailedAt     string `json:"failed_at"`
}

// VerificationRequestedPayload is the asynchronous form of the verify endpoint; the submission
// must already be held by submission storage under ContentRef.
type VerificationRequestedPayload struct {
	EscrowID        string `json:"escrow_id"`
	RequestedBy     string `json:"requested_by"`
	TaskDescription string `json:"task_description"`
	EscrowAmount    *int64 `json:"escrow_amount,omitempty"`
	FileName        string `json:"file_name"`
	MIMEHint        string `json:"mime_hint,omitempty"`
	SizeBytes       int64  `json:"size_bytes"`
	ContentRef      string `json:"content_ref"`
}
