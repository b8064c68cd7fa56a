package application

import (
	"sync"

	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// EntryGuard is the reentrancy latch shared by every state-mutating entry
// point that reaches external code (vote recording, proposal execution,
// extension callbacks). Re-entry while held fails immediately instead of
// queuing, so an external callee can never corrupt an in-flight tally or
// double-apply a mint/burn.
type EntryGuard struct {
	mu   sync.Mutex
	held bool
}

// Acquire takes the latch or fails with ErrReentrantCall.
func (g *EntryGuard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return domainerrors.ErrReentrantCall
	}
	g.held = true
	return nil
}

// Release frees the latch. Callers pair it with Acquire via defer so the
// latch is released on every exit path, including failures.
func (g *EntryGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}
