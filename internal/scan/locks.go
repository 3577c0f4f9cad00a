package scan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultQueuePollInterval is how often a queued scan retries its lock.
const DefaultQueuePollInterval = 500 * time.Millisecond

// LockArena holds the two exclusivity domains: one whole-machine lock and
// one lock per disk key, created on first use and kept for reuse.
type LockArena struct {
	poll  time.Duration
	whole *semaphore.Weighted

	mu    sync.Mutex
	disks map[string]*semaphore.Weighted
}

// NewLockArena creates an arena that polls contended locks every poll.
func NewLockArena(poll time.Duration) *LockArena {
	if poll <= 0 {
		poll = DefaultQueuePollInterval
	}
	return &LockArena{
		poll:  poll,
		whole: semaphore.NewWeighted(1),
		disks: make(map[string]*semaphore.Weighted),
	}
}

func (a *LockArena) disk(key string) *semaphore.Weighted {
	a.mu.Lock()
	defer a.mu.Unlock()
	sem, ok := a.disks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		a.disks[key] = sem
	}
	return sem
}

// AcquireWhole takes the whole-machine lock. onWait runs once, on the first
// failed attempt. The returned function releases the lock.
func (a *LockArena) AcquireWhole(ctx context.Context, onWait func()) (func(), error) {
	if err := a.acquire(ctx, a.whole, onWait); err != nil {
		return nil, err
	}
	return releaseOnce(a.whole), nil
}

// AcquireDisk takes the lock for diskKey.
func (a *LockArena) AcquireDisk(ctx context.Context, diskKey string, onWait func()) (func(), error) {
	sem := a.disk(diskKey)
	if err := a.acquire(ctx, sem, onWait); err != nil {
		return nil, err
	}
	return releaseOnce(sem), nil
}

// WaitUntil polls cond until it holds. onWait runs once, the first time
// cond is false.
func (a *LockArena) WaitUntil(ctx context.Context, cond func() bool, onWait func()) error {
	return a.poller(ctx, cond, onWait)
}

func (a *LockArena) acquire(ctx context.Context, sem *semaphore.Weighted, onWait func()) error {
	return a.poller(ctx, func() bool { return sem.TryAcquire(1) }, onWait)
}

// poller retries try on a ticker rather than blocking so that cancellation
// is observed at least once per interval.
func (a *LockArena) poller(ctx context.Context, try func() bool, onWait func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if try() {
		return nil
	}
	if onWait != nil {
		onWait()
	}

	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if try() {
				return nil
			}
		}
	}
}

func releaseOnce(sem *semaphore.Weighted) func() {
	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}
}
