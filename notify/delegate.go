// File: notify/delegate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Delegate is the raw-strategy notifier: the caller supplies its own
// suspend and resume functions, which lets the engine be reused on top of
// custom concurrency primitives without touching the engine core.

package notify

import "github.com/momentics/hioload-aio/api"

// Delegate adapts caller-supplied suspend/resume functions to the Notifier
// contract. The suspend function must block its caller until the resume
// function has been invoked.
type Delegate struct {
	state
	suspend func()
	resume  func()
}

// NewDelegate builds a delegate notifier. resume is required; suspend may
// be nil for register-only use, but waiting on such a notifier is a
// programming error and panics.
func NewDelegate(suspend, resume func()) *Delegate {
	if resume == nil {
		panic(api.ErrNoSuspend)
	}
	return &Delegate{suspend: suspend, resume: resume}
}

// Wait stores the discard cleanup and invokes the suspend function.
// Panics with ErrNoSuspend if the notifier was built without one.
func (d *Delegate) Wait(onDiscard func()) {
	if d.suspend == nil {
		panic(api.ErrNoSuspend)
	}
	d.arm(onDiscard)
	d.suspend()
}

// Register stores the discard cleanup without suspending.
func (d *Delegate) Register(onDiscard func()) {
	d.arm(onDiscard)
}

// Wake invokes the caller's resume function.
func (d *Delegate) Wake() {
	if !d.state.wake() {
		return
	}
	d.resume()
}

// Discard abandons the waiter; the eventual completion is swallowed.
func (d *Delegate) Discard() {
	d.state.discard()
}

// Discarded reports whether the waiter abandoned the request.
func (d *Delegate) Discarded() bool {
	return d.isDiscarded()
}
