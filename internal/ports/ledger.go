package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

// Ledger moves funds for a settled escrow. Implementations must treat
// SettlementInstruction.IdempotencyKey as a dedup key: a repeated instruction returns the
// reference of the first movement instead of moving funds again.
type Ledger interface {
	Transfer(ctx context.Context, instruction domain.SettlementInstruction) (reference string, err error)
}
