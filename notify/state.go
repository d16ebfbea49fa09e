// File: notify/state.go
// Package notify provides the Notifier implementations accepted by the
// engine: a goroutine-blocking event, a raw suspend/resume delegate pair,
// and a cooperative-task binding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package notify

import "sync"

// state carries the wake/discard bookkeeping shared by every notifier.
//
// Exactly-once cleanup: if the waiter is discarded before the completion is
// delivered, the engine's drain path runs the cleanup; if discard happens
// after the wake was already delivered, the notifier runs the stored
// cleanup itself. A caller must never both consume a result and discard.
type state struct {
	mu        sync.Mutex
	onDiscard func()
	woken     bool
	discarded bool
}

// arm stores the engine-supplied cleanup for the current request.
func (s *state) arm(onDiscard func()) {
	s.mu.Lock()
	s.onDiscard = onDiscard
	s.mu.Unlock()
}

// wake marks delivery, at most once. Returns false on a duplicate wake or
// if the request was already discarded; in the discarded case the cleanup
// has been run and the waiter must not be resumed.
func (s *state) wake() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.woken {
		return false
	}
	s.woken = true
	if s.discarded {
		s.cleanup()
		return false
	}
	return true
}

// discard abandons the waiter. If the wake already happened the cleanup
// runs here; otherwise the engine's drain path will observe the flag.
func (s *state) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	if s.woken {
		s.cleanup()
	}
}

func (s *state) isDiscarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// cleanup runs the stored onDiscard at most once. Called with mu held.
func (s *state) cleanup() {
	if s.onDiscard != nil {
		fn := s.onDiscard
		s.onDiscard = nil
		fn()
	}
}
