// File: notify/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task notifier: binds an in-flight request to a cooperative loop task.
// Wait suspends the task (yielding the scheduler goroutine to other tasks);
// Wake schedules it back onto the loop.

package notify

import (
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/loop"
)

// Task suspends and resumes one cooperative task per request.
type Task struct {
	state
	t *loop.Task
}

// NewTask binds a notifier to the given task. A nil task is a programming
// error and panics: there is nothing to suspend.
func NewTask(t *loop.Task) *Task {
	if t == nil {
		panic(api.ErrNoSuspend)
	}
	return &Task{t: t}
}

// Wait stores the discard cleanup and suspends the bound task.
func (n *Task) Wait(onDiscard func()) {
	n.arm(onDiscard)
	n.t.Suspend()
}

// Register stores the discard cleanup without suspending.
func (n *Task) Register(onDiscard func()) {
	n.arm(onDiscard)
}

// Wake schedules the suspended task back onto its loop.
func (n *Task) Wake() {
	if !n.state.wake() {
		return
	}
	n.t.Resume()
}

// Discard abandons the waiter; the eventual completion is swallowed.
func (n *Task) Discard() {
	n.state.discard()
}

// Discarded reports whether the waiter abandoned the request.
func (n *Task) Discarded() bool {
	return n.isDiscarded()
}
