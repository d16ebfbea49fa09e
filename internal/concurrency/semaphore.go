// File: internal/concurrency/semaphore.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Counting semaphore used as the sole hand-off signal between job
// reservation and the worker pool. The count is unbounded: reservations
// are never refused, they queue up until a worker drains them.

package concurrency

import "sync"

// Semaphore is a classic counting semaphore built on a condition variable.
// Post never blocks; Wait blocks until the count is positive.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// NewSemaphore returns a semaphore with an initial count of zero.
func NewSemaphore() *Semaphore {
	s := &Semaphore{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Post increments the count and wakes one waiter.
func (s *Semaphore) Post() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}

// Wait blocks until the count is positive, then decrements it.
// Every Post is matched by exactly one successful Wait.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
	s.mu.Unlock()
}

// Pending returns the current count. Test and diagnostics use only.
func (s *Semaphore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
