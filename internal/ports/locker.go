package ports

import "context"

// EscrowLocker serialises work on a single escrow. Lock blocks until the key is free or ctx
// is done; the returned func releases the lock and is safe to call once.
type EscrowLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
