// File: fake/notifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "sync"

// Notifier records every Notifier interaction for assertions. Wait does not
// block; tests that need real suspension should use notify.Event instead.
type Notifier struct {
	mu        sync.Mutex
	wakes     int
	waits     int
	registers int
	discarded bool
	onDiscard func()
}

// NewNotifier returns an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Wait implements api.Notifier without blocking.
func (n *Notifier) Wait(onDiscard func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waits++
	n.onDiscard = onDiscard
}

// Register implements api.Notifier.
func (n *Notifier) Register(onDiscard func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registers++
	n.onDiscard = onDiscard
}

// Wake implements api.Notifier.
func (n *Notifier) Wake() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wakes++
}

// Discarded implements api.Notifier.
func (n *Notifier) Discarded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.discarded
}

// SetDiscarded flips the discard flag tests assert against.
func (n *Notifier) SetDiscarded(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.discarded = v
}

// Wakes returns the number of Wake calls observed.
func (n *Notifier) Wakes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.wakes
}

// RunDiscard invokes the stored discard cleanup, as an abandoning owner
// would.
func (n *Notifier) RunDiscard() {
	n.mu.Lock()
	fn := n.onDiscard
	n.onDiscard = nil
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
}
