package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

const escrowLockPrefix = "m15:lock:"

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// lockStore is the part of the Redis API the locker uses.
type lockStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisEscrowLocker serialises work on one escrow across service replicas. Each lock carries
// a random token so only its holder can release it, and a TTL so a crashed holder cannot
// wedge the escrow.
type RedisEscrowLocker struct {
	client       lockStore
	ttl          time.Duration
	retryBackoff time.Duration
}

func NewRedisEscrowLocker(client *redis.Client, ttl time.Duration) *RedisEscrowLocker {
	return newRedisEscrowLocker(client, ttl)
}

func newRedisEscrowLocker(client lockStore, ttl time.Duration) *RedisEscrowLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisEscrowLocker{client: client, ttl: ttl, retryBackoff: 25 * time.Millisecond}
}

func (l *RedisEscrowLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := escrowLockPrefix + key
	token := uuid.NewString()
	backoff := l.retryBackoff
	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// The TTL reclaims the key if the release never lands.
		_ = releaseLockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}

var _ ports.EscrowLocker = (*RedisEscrowLocker)(nil)
