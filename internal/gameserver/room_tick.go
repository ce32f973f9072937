package gameserver

import (
	"context"
	"sync"
	"time"
)

// TickManager fires one tick per interval into every registered room.
// Callbacks run sequentially on the manager's goroutine and must not block.
//
// Invariant: all callbacks are invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func(time.Time)
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]func(time.Time)),
	}
}

// RegisterTick registers a callback for roomID. Replaces any existing callback.
func (z *TickManager) RegisterTick(roomID string, fn func(time.Time)) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.ticks[roomID] = fn
}

// Unregister removes the tick callback for roomID.
func (z *TickManager) Unregister(roomID string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.ticks, roomID)
}

// Registered returns the number of rooms receiving ticks.
func (z *TickManager) Registered() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.ticks)
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered tick callbacks receive the tick time once per interval.
func (z *TickManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(z.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				z.mu.Lock()
				callbacks := make([]func(time.Time), 0, len(z.ticks))
				for _, fn := range z.ticks {
					callbacks = append(callbacks, fn)
				}
				z.mu.Unlock()
				for _, fn := range callbacks {
					fn(now)
				}
			}
		}
	}()
}
