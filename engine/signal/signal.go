// Package signal provides the small set of cross-goroutine primitives the renderer is built on:
// a binary auto-reset signal, a scoped mutual-exclusion guard and a thread-locked goroutine spawner.
package signal

import (
	"context"
	"sync"
)

// Signal is a binary, auto-reset event.
// Set marks the signal; repeated Sets before a Wait collapse into one.
// Wait blocks until the signal is set and consumes it.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates an unset Signal.
//
// Returns:
//   - *Signal: the new signal
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set marks the signal. Never blocks.
func (s *Signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the signal is set, then resets it.
func (s *Signal) Wait() {
	<-s.ch
}

// WaitContext blocks until the signal is set or ctx is done.
//
// Parameters:
//   - ctx: cancels the wait
//
// Returns:
//   - error: ctx.Err() if the context finished first, otherwise nil
func (s *Signal) WaitContext(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryWait consumes the signal if it is set and reports whether it was.
func (s *Signal) TryWait() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// C exposes the underlying channel for use in select statements.
// A receive on it consumes the signal.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Guard is a mutex with scoped acquisition. The lock is released on every exit path
// of the scoped function, including error returns and panics.
type Guard struct {
	mu *sync.Mutex
}

// NewGuard creates an unlocked Guard.
func NewGuard() *Guard {
	return &Guard{mu: &sync.Mutex{}}
}

// Do runs fn while holding the guard.
//
// Parameters:
//   - fn: the critical section
func (g *Guard) Do(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// DoErr runs fn while holding the guard and returns its error.
//
// Parameters:
//   - fn: the critical section
//
// Returns:
//   - error: whatever fn returned
func (g *Guard) DoErr(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
