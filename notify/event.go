// File: notify/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event is the generic waitable-event notifier: Wait parks the calling
// goroutine on a channel, Wake releases it. One Event serves one request.

package notify

// Event is a single-use, goroutine-blocking Notifier.
type Event struct {
	state
	done chan struct{}
}

// NewEvent returns an armed, unfired event notifier.
func NewEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// Wait stores the discard cleanup and parks until Wake. Returns immediately
// if Wake already fired.
func (e *Event) Wait(onDiscard func()) {
	e.arm(onDiscard)
	<-e.done
}

// Register stores the discard cleanup without parking (nonblocking path).
func (e *Event) Register(onDiscard func()) {
	e.arm(onDiscard)
}

// Wake releases the parked goroutine. Idempotent against double delivery.
func (e *Event) Wake() {
	if !e.state.wake() {
		return
	}
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// Discard abandons the waiter; the eventual completion is swallowed.
func (e *Event) Discard() {
	e.state.discard()
}

// Discarded reports whether the waiter abandoned the request.
func (e *Event) Discarded() bool {
	return e.isDiscarded()
}
