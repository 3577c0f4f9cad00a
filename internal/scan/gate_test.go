package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateOpen(g *PauseGate) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

func TestPauseGateStartsOpen(t *testing.T) {
	g := NewPauseGate()
	assert.True(t, gateOpen(g))
	require.NoError(t, g.Wait(context.Background()))
}

func TestPauseGateReleasesAllWaiters(t *testing.T) {
	g := NewPauseGate()
	g.Close()
	g.Close() // idempotent
	assert.False(t, gateOpen(g))

	const waiters = 4
	var wg sync.WaitGroup
	released := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(context.Background()); err == nil {
				released <- struct{}{}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, released, 0, "waiters must block while the gate is closed")

	g.Open()
	g.Open() // idempotent
	wg.Wait()
	assert.Len(t, released, waiters)
}

func TestPauseGateWaitCancelled(t *testing.T) {
	g := NewPauseGate()
	g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPauseGateReusable(t *testing.T) {
	g := NewPauseGate()
	for i := 0; i < 3; i++ {
		g.Close()
		done := make(chan error, 1)
		go func() { done <- g.Wait(context.Background()) }()
		g.Open()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("cycle %d: waiter not released", i)
		}
	}
}
