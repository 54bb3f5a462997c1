package playback

import "sync"

// PauseGate holds the engine between chunks while paused.
type PauseGate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	paused   bool
	released bool
}

// NewPauseGate creates an open gate.
func NewPauseGate() *PauseGate {
	g := &PauseGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Set closes (true) or opens (false) the gate. Opening wakes every waiter.
// A released gate stays open.
func (g *PauseGate) Set(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return
	}
	g.paused = paused
	if !paused {
		g.cond.Broadcast()
	}
}

// Release opens the gate for good. A pause that arrives afterwards, such as
// one still queued when the player shuts down, can no longer hold the
// engine.
func (g *PauseGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.released = true
	g.paused = false
	g.cond.Broadcast()
}

// Paused reports whether the gate is closed.
func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is closed. onPause runs before each wait and
// onResume after each wake, both with the gate's lock held.
func (g *PauseGate) Wait(onPause, onResume func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.paused {
		onPause()
		g.cond.Wait()
		onResume()
	}
}
