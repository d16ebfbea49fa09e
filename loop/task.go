// File: loop/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task is one cooperative unit of work. Its body runs on a dedicated
// goroutine, but the loop's channel handshake guarantees the body and the
// loop goroutine never execute concurrently, preserving the
// single-scheduler-thread invariant.

package loop

// Task is a cooperatively scheduled unit of work.
type Task struct {
	loop   *Loop
	resume chan struct{}
	yield  chan struct{}
	done   bool
}

// Suspend parks the task and hands control back to the loop. Must only be
// called from inside the task's own body. The task runs again after a
// matching Resume.
func (t *Task) Suspend() {
	t.yield <- struct{}{}
	<-t.resume
}

// Resume schedules a suspended task to run on the loop goroutine. Safe from
// any goroutine. Each Resume must match exactly one Suspend.
func (t *Task) Resume() {
	t.loop.schedule(t)
}

// Loop returns the owning loop.
func (t *Task) Loop() *Loop {
	return t.loop
}
