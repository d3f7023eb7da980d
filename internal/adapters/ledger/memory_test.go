package ledger

import (
	"context"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func TestMemoryLedgerDeduplicatesByKey(t *testing.T) {
	t.Parallel()

	ledger := NewMemoryLedger()
	instruction := domain.SettlementInstruction{
		IdempotencyKey: domain.SettlementKey("esc-1", domain.SettlementActionRelease),
		EscrowID:       "esc-1",
		Action:         domain.SettlementActionRelease,
		PayeeID:        "freelancer",
		PayeeAmount:    9900,
		PlatformAmount: 200,
		Currency:       "USD",
	}
	first, err := ledger.Transfer(context.Background(), instruction)
	if err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	second, err := ledger.Transfer(context.Background(), instruction)
	if err != nil {
		t.Fatalf("second transfer: %v", err)
	}
	if first != second {
		t.Fatalf("expected same reference, got %s and %s", first, second)
	}
	if got := len(ledger.Movements()); got != 1 {
		t.Fatalf("expected one movement, got %d", got)
	}
}

func TestMemoryLedgerHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemoryLedger().Transfer(ctx, domain.SettlementInstruction{IdempotencyKey: "k"}); err == nil {
		t.Fatalf("expected cancelled transfer to fail")
	}
}
