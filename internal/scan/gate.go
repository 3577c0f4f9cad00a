package scan

import (
	"context"
	"sync"
)

// PauseGate is a resettable gate that any number of goroutines can wait on.
// It starts open. While open, its channel is closed so waiters pass
// straight through; Close swaps in a fresh channel and Open closes it.
type PauseGate struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewPauseGate returns an open gate.
func NewPauseGate() *PauseGate {
	ch := make(chan struct{})
	close(ch)
	return &PauseGate{ch: ch}
}

// Close makes subsequent Wait calls block. Closing a closed gate is a no-op.
func (g *PauseGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
	}
}

// Open releases every waiter. Opening an open gate is a no-op.
func (g *PauseGate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
	default:
		close(g.ch)
	}
}

// Wait blocks while the gate is closed. It returns ctx.Err() if the
// context ends first.
func (g *PauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
