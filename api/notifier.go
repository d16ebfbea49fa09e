// File: api/notifier.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Notifier is the strategy a caller supplies to describe how its execution
// context suspends while an offloaded operation is in flight and how it is
// made runnable again once the completion is drained on the scheduler side.

package api

// Notifier couples one in-flight offload request to the caller's suspension
// mechanism. A Notifier instance serves exactly one request at a time.
//
// Discard protocol: onDiscard is the engine-supplied cleanup for the request
// (it recycles the job slot). If the waiter is abandoned before completion,
// the completion is drained silently and the engine runs the cleanup itself;
// if abandonment happens after Wake was delivered, the notifier runs the
// stored onDiscard so the slot is still recycled exactly once.
type Notifier interface {
	// Wait suspends the calling context until Wake, storing onDiscard.
	// Returns immediately if Wake already fired (nonblocking path).
	Wait(onDiscard func())

	// Register stores onDiscard and arms the notifier without suspending.
	// Used by the nonblocking request path so the caller can suspend on its
	// own schedule.
	Register(onDiscard func())

	// Wake makes the suspended context runnable again. Called only from the
	// completion-drain path on the scheduler goroutine.
	Wake()

	// Discarded reports whether the waiter abandoned the request. A
	// discarded completion is drained but not delivered.
	Discarded() bool
}
