package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

type EscrowRepository interface {
	Create(ctx context.Context, escrow domain.Escrow) error
	GetByID(ctx context.Context, escrowID string) (domain.Escrow, error)
	// Update persists escrow only if the stored status still equals expected; otherwise it
	// returns domain.ErrConflict and leaves the row untouched.
	Update(ctx context.Context, escrow domain.Escrow, expected domain.EscrowStatus) error
}

type VerificationRepository interface {
	Create(ctx context.Context, record domain.VerificationRecord) error
	ListByEscrow(ctx context.Context, escrowID string, limit int) ([]domain.VerificationRecord, error)
}

type SettlementRepository interface {
	// Create fails with domain.ErrConflict when a settlement already exists for the escrow.
	Create(ctx context.Context, settlement domain.Settlement) error
	GetByEscrow(ctx context.Context, escrowID string) (domain.Settlement, error)
	Update(ctx context.Context, settlement domain.Settlement) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release drops a reservation that never completed so the client can retry with the same key.
	Release(ctx context.Context, key string) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxRecord struct {
	RecordID    string
	EventClass  string
	Envelope    contracts.EventEnvelope
	CreatedAt   time.Time
	SentAt      *time.Time
	RetryCount  int
	LastError   string
	LastErrorAt *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
	MarkFailed(ctx context.Context, recordID, errMsg string, at time.Time) error
}

// TxRepositories are the stores bound to one unit of work.
type TxRepositories struct {
	Escrows       EscrowRepository
	Verifications VerificationRepository
	Settlements   SettlementRepository
	Outbox        OutboxRepository
}

// UnitOfWork commits every write fn makes through repos, or none of them when fn fails.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
