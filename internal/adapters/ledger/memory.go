package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

// MemoryLedger records movements in process and deduplicates by idempotency key.
type MemoryLedger struct {
	mu         sync.Mutex
	references map[string]string
	movements  []domain.SettlementInstruction
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{references: make(map[string]string)}
}

func (l *MemoryLedger) Transfer(ctx context.Context, instruction domain.SettlementInstruction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if reference, ok := l.references[instruction.IdempotencyKey]; ok {
		return reference, nil
	}
	reference := "mem-" + uuid.NewString()
	l.references[instruction.IdempotencyKey] = reference
	l.movements = append(l.movements, instruction)
	return reference, nil
}

// Movements returns every distinct transfer executed so far.
func (l *MemoryLedger) Movements() []domain.SettlementInstruction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.SettlementInstruction, len(l.movements))
	copy(out, l.movements)
	return out
}

var _ ports.Ledger = (*MemoryLedger)(nil)
