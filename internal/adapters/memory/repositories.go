package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

type Repositories struct {
	Escrows       *EscrowRepository
	Verifications *VerificationRepository
	Settlements   *SettlementRepository
	Idempotency   *IdempotencyRepository
	EventDedup    *EventDedupRepository
	Outbox        *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Escrows: &EscrowRepository{
			escrows: make(map[string]domain.Escrow),
		},
		Verifications: &VerificationRepository{
			records: make(map[string][]domain.VerificationRecord),
		},
		Settlements: &SettlementRepository{
			settlements: make(map[string]domain.Settlement),
		},
		Idempotency: &IdempotencyRepository{
			records: make(map[string]ports.IdempotencyRecord),
		},
		EventDedup: &EventDedupRepository{
			records: make(map[string]dedupRecord),
		},
		Outbox: &OutboxRepository{
			records: make(map[string]ports.OutboxRecord),
		},
	}
}

type EscrowRepository struct {
	mu      sync.RWMutex
	escrows map[string]domain.Escrow
}

func (r *EscrowRepository) Create(_ context.Context, escrow domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.escrows[escrow.EscrowID]; ok {
		return domain.ErrConflict
	}
	r.escrows[escrow.EscrowID] = cloneEscrow(escrow)
	return nil
}

func (r *EscrowRepository) GetByID(_ context.Context, escrowID string) (domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	escrow, ok := r.escrows[escrowID]
	if !ok {
		return domain.Escrow{}, domain.ErrNotFound
	}
	return cloneEscrow(escrow), nil
}

func (r *EscrowRepository) Update(_ context.Context, escrow domain.Escrow, expected domain.EscrowStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.escrows[escrow.EscrowID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: escrow %s is %s, expected %s", domain.ErrConflict, escrow.EscrowID, stored.Status, expected)
	}
	r.escrows[escrow.EscrowID] = cloneEscrow(escrow)
	return nil
}

func (r *EscrowRepository) put(escrow domain.Escrow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escrows[escrow.EscrowID] = cloneEscrow(escrow)
}

func (r *EscrowRepository) drop(escrowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.escrows, escrowID)
}

func cloneEscrow(escrow domain.Escrow) domain.Escrow {
	if escrow.LastVerdict != nil {
		verdict := *escrow.LastVerdict
		escrow.LastVerdict = &verdict
	}
	return escrow
}

type VerificationRepository struct {
	mu      sync.RWMutex
	records map[string][]domain.VerificationRecord
}

func (r *VerificationRepository) Create(_ context.Context, record domain.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.EscrowID] = append(r.records[record.EscrowID], record)
	return nil
}

func (r *VerificationRepository) remove(escrowID, verificationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[escrowID] = slices.DeleteFunc(r.records[escrowID], func(record domain.VerificationRecord) bool {
		return record.VerificationID == verificationID
	})
}

func (r *VerificationRepository) ListByEscrow(_ context.Context, escrowID string, limit int) ([]domain.VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.records[escrowID]
	out := make([]domain.VerificationRecord, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type SettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]domain.Settlement
}

func (r *SettlementRepository) Create(_ context.Context, settlement domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settlements[settlement.EscrowID]; ok {
		return domain.ErrConflict
	}
	r.settlements[settlement.EscrowID] = settlement
	return nil
}

func (r *SettlementRepository) GetByEscrow(_ context.Context, escrowID string) (domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	settlement, ok := r.settlements[escrowID]
	if !ok {
		return domain.Settlement{}, domain.ErrNotFound
	}
	return settlement, nil
}

func (r *SettlementRepository) Update(_ context.Context, settlement domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settlements[settlement.EscrowID]; !ok {
		return domain.ErrNotFound
	}
	r.settlements[settlement.EscrowID] = settlement
	return nil
}

func (r *SettlementRepository) put(settlement domain.Settlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settlements[settlement.EscrowID] = settlement
}

func (r *SettlementRepository) drop(escrowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settlements, escrowID)
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	if now.After(record.ExpiresAt) {
		delete(r.records, key)
		return nil, nil
	}
	clone := record
	clone.ResponseBody = slices.Clone(record.ResponseBody)
	return &clone, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok && time.Now().UTC().Before(existing.ExpiresAt) {
		if existing.RequestHash != requestHash {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("%w: idempotency key already reserved", domain.ErrConflict)
	}
	r.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.ResponseCode = responseCode
	record.ResponseBody = slices.Clone(responseBody)
	if at.After(record.ExpiresAt) {
		record.ExpiresAt = at.Add(7 * 24 * time.Hour)
	}
	r.records[key] = record
	return nil
}

func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[key]; ok && len(record.ResponseBody) == 0 {
		delete(r.records, key)
	}
	return nil
}

type dedupRecord struct {
	EventType string
	ExpiresAt time.Time
}

type EventDedupRepository struct {
	mu      sync.Mutex
	records map[string]dedupRecord
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[eventID]
	if !ok {
		return false, nil
	}
	if now.After(record.ExpiresAt) {
		delete(r.records, eventID)
		return false, nil
	}
	return true, nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[eventID] = dedupRecord{EventType: eventType, ExpiresAt: expiresAt}
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		record, ok := r.records[id]
		if !ok || record.SentAt != nil {
			continue
		}
		out = append(out, record)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.SentAt = &at
	r.records[recordID] = record
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, recordID, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.RetryCount++
	record.LastError = errMsg
	record.LastErrorAt = &at
	r.records[recordID] = record
	return nil
}

func (r *OutboxRepository) remove(recordID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, recordID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == recordID })
}

// EventTypes lists enqueued event types in order.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Envelope.EventType)
	}
	return out
}

var (
	_ ports.EscrowRepository       = (*EscrowRepository)(nil)
	_ ports.VerificationRepository = (*VerificationRepository)(nil)
	_ ports.SettlementRepository   = (*SettlementRepository)(nil)
	_ ports.IdempotencyRepository  = (*IdempotencyRepository)(nil)
	_ ports.EventDedupRepository   = (*EventDedupRepository)(nil)
	_ ports.OutboxRepository       = (*OutboxRepository)(nil)
)
