package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func hashPayload(value interface{}) string {
	blob, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// replayIdempotent returns the cached response for key when the same request was already
// completed. ok is false when the caller must execute the request.
func replayIdempotent[T any](ctx context.Context, s *Service, key, requestHash string) (cached T, ok bool, err error) {
	if key == "" {
		return cached, false, nil
	}
	existing, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return cached, false, err
	}
	if existing == nil {
		if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
			return cached, false, err
		}
		return cached, false, nil
	}
	if existing.RequestHash != requestHash {
		return cached, false, domain.ErrIdempotencyConflict
	}
	if len(existing.ResponseBody) == 0 {
		return cached, false, fmt.Errorf("%w: request with this key is still in flight", domain.ErrConflict)
	}
	if err := json.Unmarshal(existing.ResponseBody, &cached); err != nil {
		return cached, false, err
	}
	return cached, true, nil
}

func (s *Service) completeIdempotent(ctx context.Context, key string, code int, response interface{}) error {
	if key == "" {
		return nil
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.idempotency.Complete(ctx, key, code, payload, s.nowFn())
}

func (s *Service) releaseIdempotent(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logFailure(ctx, "release_idempotency", err, "idempotency_key", key)
	}
}

func scopedKey(actor Actor, operation string) string {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return ""
	}
	return operation + ":" + actor.SubjectID + ":" + actor.IdempotencyKey
}

func escrowLockKey(escrowID string) string {
	return "escrow:" + escrowID
}

// lockEscrow acquires the per-escrow lock, translating an expired deadline into a
// verification timeout.
func (s *Service) lockEscrow(ctx context.Context, escrowID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, escrowLockKey(escrowID))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for escrow %s", domain.ErrVerificationTimedOut, escrowID)
		}
		return nil, fmt.Errorf("%w: lock escrow: %v", domain.ErrDependencyUnavailable, err)
	}
	return unlock, nil
}

func (s *Service) quote(amount int64) (domain.FeeBreakdown, error) {
	return domain.ComputeFees(amount, s.cfg.ClientFeeRate, s.cfg.FreelancerFeeRate)
}

func (s *Service) logFailure(ctx context.Context, operation string, err error, attrs ...any) {
	args := append([]any{
		"module", "application.service",
		"layer", "application",
		"operation", operation,
		"outcome", "failure",
		"error", err,
	}, attrs...)
	s.logger.WarnContext(ctx, "operation failed", args...)
}

func (s *Service) logSuccess(ctx context.Context, operation string, attrs ...any) {
	args := append([]any{
		"module", "application.service",
		"layer", "application",
		"operation", operation,
		"outcome", "success",
	}, attrs...)
	s.logger.InfoContext(ctx, "operation completed", args...)
}
