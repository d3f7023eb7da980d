package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

func TestEscrowRepositoryStatusGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	now := time.Now().UTC()
	escrow, err := domain.NewEscrow("esc-1", "client", "freelancer", "", now)
	if err != nil {
		t.Fatalf("new escrow: %v", err)
	}
	if err := repos.Escrows.Create(ctx, escrow); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Escrows.Create(ctx, escrow); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate create to conflict, got %v", err)
	}

	funded, _ := escrow.Deposit("client", 500, now)
	if err := repos.Escrows.Update(ctx, funded, domain.EscrowStatusDeposited); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected stale status to conflict, got %v", err)
	}
	if err := repos.Escrows.Update(ctx, funded, domain.EscrowStatusNone); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, err := repos.Escrows.GetByID(ctx, "esc-1")
	if err != nil || stored.Status != domain.EscrowStatusDeposited || stored.Amount != 500 {
		t.Fatalf("unexpected stored escrow %+v %v", stored, err)
	}
	if _, err := repos.Escrows.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerificationRepositoryNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	for _, id := range []string{"v1", "v2", "v3"} {
		if err := repos.Verifications.Create(ctx, domain.VerificationRecord{VerificationID: id, EscrowID: "e"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, err := repos.Verifications.ListByEscrow(ctx, "e", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].VerificationID != "v3" || items[1].VerificationID != "v2" {
		t.Fatalf("unexpected order %+v", items)
	}
}

func TestSettlementRepositoryOnePerEscrow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	settlement := domain.Settlement{SettlementID: "s1", EscrowID: "e", Action: domain.SettlementActionRelease, Status: domain.SettlementStatusPending}
	if err := repos.Settlements.Create(ctx, settlement); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Settlements.Create(ctx, settlement); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	settlement.Status = domain.SettlementStatusCompleted
	if err := repos.Settlements.Update(ctx, settlement); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := repos.Settlements.GetByEscrow(ctx, "e")
	if stored.Status != domain.SettlementStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
}

func TestIdempotencyRepositoryReserveCompleteRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	expires := time.Now().UTC().Add(time.Hour)
	if err := repos.Idempotency.Reserve(ctx, "k", "h1", expires); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := repos.Idempotency.Reserve(ctx, "k", "h2", expires); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected hash mismatch conflict, got %v", err)
	}
	if err := repos.Idempotency.Reserve(ctx, "k", "h1", expires); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected in-flight conflict, got %v", err)
	}
	if err := repos.Idempotency.Release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if rec, _ := repos.Idempotency.Get(ctx, "k", time.Now().UTC()); rec != nil {
		t.Fatalf("expected released reservation to be gone")
	}

	if err := repos.Idempotency.Reserve(ctx, "k", "h1", expires); err != nil {
		t.Fatalf("reserve again: %v", err)
	}
	if err := repos.Idempotency.Complete(ctx, "k", 201, []byte(`{"ok":true}`), time.Now().UTC()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repos.Idempotency.Release(ctx, "k"); err != nil {
		t.Fatalf("release completed: %v", err)
	}
	rec, err := repos.Idempotency.Get(ctx, "k", time.Now().UTC())
	if err != nil || rec == nil || string(rec.ResponseBody) != `{"ok":true}` {
		t.Fatalf("completed record must survive release: %+v %v", rec, err)
	}
	if rec, _ := repos.Idempotency.Get(ctx, "k", expires.Add(8*24*time.Hour)); rec != nil {
		t.Fatalf("expected record to expire")
	}
}

func TestEventDedupRepositoryExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	now := time.Now().UTC()
	if dup, _ := repos.EventDedup.IsDuplicate(ctx, "evt", now); dup {
		t.Fatalf("unexpected duplicate")
	}
	if err := repos.EventDedup.MarkProcessed(ctx, "evt", domain.EventVerificationRequested, now.Add(time.Hour)); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if dup, _ := repos.EventDedup.IsDuplicate(ctx, "evt", now); !dup {
		t.Fatalf("expected duplicate")
	}
	if dup, _ := repos.EventDedup.IsDuplicate(ctx, "evt", now.Add(2*time.Hour)); dup {
		t.Fatalf("expected expired entry to be forgotten")
	}
}

func TestOutboxRepositoryPendingOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := NewRepositories()
	for _, id := range []string{"r1", "r2", "r3"} {
		if err := repos.Outbox.Enqueue(ctx, ports.OutboxRecord{
			RecordID: id,
			Envelope: contracts.EventEnvelope{EventID: id, EventType: domain.EventEscrowCreated},
		}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := repos.Outbox.MarkSent(ctx, "r1", time.Now().UTC()); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repos.Outbox.MarkFailed(ctx, "r2", "broker down", time.Now().UTC()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, err := repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].RecordID != "r2" || pending[0].RetryCount != 1 || pending[1].RecordID != "r3" {
		t.Fatalf("unexpected pending %+v", pending)
	}
	if got := repos.Outbox.EventTypes(); len(got) != 3 {
		t.Fatalf("expected 3 event types, got %v", got)
	}
}
