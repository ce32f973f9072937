package gameserver_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/nightfall/internal/gameserver"
)

func TestTickManager_StartsAndStops(t *testing.T) {
	tm := gameserver.NewTickManager(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)
	time.Sleep(120 * time.Millisecond)
	cancel()
	// Should not block or panic after cancel
}

func TestTickManager_TickCallbackInvoked(t *testing.T) {
	tm := gameserver.NewTickManager(20 * time.Millisecond)
	called := make(chan time.Time, 1)
	tm.RegisterTick("room1", func(now time.Time) {
		select {
		case called <- now:
		default:
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	tm.Start(ctx)
	select {
	case now := <-called:
		assert.False(t, now.IsZero())
	case <-ctx.Done():
		t.Fatal("tick callback not invoked within timeout")
	}
}

func TestTickManager_UnregisterStopsCallback(t *testing.T) {
	tm := gameserver.NewTickManager(20 * time.Millisecond)
	var count atomic.Int64
	tm.RegisterTick("r1", func(time.Time) { count.Add(1) })
	assert.Equal(t, 1, tm.Registered())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	tm.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	tm.Unregister("r1")
	assert.Equal(t, 0, tm.Registered())
	countAfterUnregister := count.Load()
	time.Sleep(60 * time.Millisecond)
	if count.Load() > countAfterUnregister+1 {
		t.Fatalf("tick continued after unregister: before=%d after=%d", countAfterUnregister, count.Load())
	}
}

func TestNewTickManager_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { gameserver.NewTickManager(0) })
}
