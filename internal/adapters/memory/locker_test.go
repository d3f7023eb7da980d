package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := NewKeyedLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "escrow:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			now := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxInside)
				if now <= seen || atomic.CompareAndSwapInt32(&maxInside, seen, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxInside)
	}
	if locker.held() != 0 {
		t.Fatalf("expected lock entries to be cleaned up, %d left", locker.held())
	}
}

func TestKeyedLockerIndependentKeys(t *testing.T) {
	t.Parallel()

	locker := NewKeyedLocker()
	unlockA, err := locker.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b while a is held: %v", err)
	}
	unlockB()
}

func TestKeyedLockerHonoursDeadline(t *testing.T) {
	t.Parallel()

	locker := NewKeyedLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if locker.held() != 0 {
		t.Fatalf("expected no entries after release, got %d", locker.held())
	}
}
