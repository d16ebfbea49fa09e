// File: aio/job.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Job is one offloaded blocking-operation request: command tag, descriptor,
// buffers, result cells, completion hooks, and the slot-lifecycle state used
// by the queue. Job records are owned by the queue and recycled; a *Job held
// by a worker or a caller is a borrow that stays valid until Recycle.

package aio

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
)

// Command selects the blocking operation a worker performs for a job.
type Command int

const (
	cmdNone Command = iota
	CmdRead
	CmdWrite
	CmdFsync
	CmdClose
	CmdCall
)

// opName maps a command to the operation tag carried by OpError.
func (c Command) opName() string {
	switch c {
	case CmdRead:
		return "pread"
	case CmdWrite:
		return "write"
	case CmdFsync:
		return "fsync"
	case CmdClose:
		return "close"
	case CmdCall:
		return "delegate call"
	default:
		return "none"
	}
}

// Delegate is an arbitrary callback executed on a worker goroutine.
// It receives the worker's Context and must not touch scheduler-side state.
type Delegate func(ctx api.Context) error

// Job holds the full state of one in-flight or recyclable offload request.
//
// Slot lifecycle: a job is in exactly one of three states, guarded by the
// queue mutex: free-and-unclaimed (slotFree), reserved-and-unclaimed
// (!slotFree && !taken), or claimed by a worker (!slotFree && taken).
// taken is never true while slotFree is true.
type Job struct {
	cmd    Command
	fd     int
	offset int64

	// recvBuf is engine-owned scratch the worker reads into; results are
	// copied to userBuf only in the finalize step on the resuming side so a
	// discarded caller's memory is never written from a worker.
	recvBuf []byte
	// userBuf is caller-owned. Read destination, or Write source used in
	// place (the worker only reads it).
	userBuf []byte

	delegate Delegate

	ret    int
	errno  unix.Errno
	callEr error

	finalize  func(*Job)
	callbacks []func(*Job)
	notify    api.Notifier

	taken    bool
	slotFree bool
	// posted is set under the queue mutex once the request is fully
	// populated; workers only claim posted slots, which also publishes the
	// populated fields to the claiming worker.
	posted bool

	q *jobQueue
}

// resetTransient clears per-request fields when a slot is reserved so a new
// occupant never observes stale callbacks, hooks, or results.
func (j *Job) resetTransient() {
	j.cmd = cmdNone
	j.fd = -1
	j.offset = 0
	j.userBuf = nil
	j.delegate = nil
	j.ret = 0
	j.errno = 0
	j.callEr = nil
	j.finalize = nil
	j.callbacks = nil
	j.notify = nil
	j.posted = false
}

// growRecv sizes the scratch buffer to n bytes, reusing capacity when it can.
func (j *Job) growRecv(n int) {
	if cap(j.recvBuf) < n {
		j.recvBuf = make([]byte, n)
		return
	}
	j.recvBuf = j.recvBuf[:n]
}

// Result returns the operation's byte count, or the error saved by the
// worker, tagged with the operation name. Valid once the caller has been
// woken and until Recycle.
func (j *Job) Result() (int, error) {
	if j.callEr != nil {
		return j.ret, &api.OpError{Op: j.cmd.opName(), Cause: j.callEr}
	}
	if j.errno != 0 {
		return j.ret, api.NewOpError(j.cmd.opName(), j.errno)
	}
	return j.ret, nil
}

// finished runs the finalize hook and the ordered completion callbacks.
// Invoked exactly once per served request, on the scheduler side, before the
// waiter is woken; never invoked for discarded completions.
func (j *Job) finished() {
	if j.finalize != nil {
		j.finalize(j)
		j.finalize = nil
	}
	for _, cb := range j.callbacks {
		cb(j)
	}
}

// Recycle returns the slot to the free pool. Must be called exactly once per
// request, after all result fields have been consumed; the *Job must not be
// used afterwards.
func (j *Job) Recycle() {
	j.q.recycle(j)
}

// discardFunc returns the cleanup the engine hands to Notifier.Wait/Register:
// it recycles the slot of an abandoned request.
func (j *Job) discardFunc() func() {
	return func() { j.q.recycle(j) }
}

// finalizeRead copies the bytes the worker read into the caller's buffer.
func finalizeRead(j *Job) {
	if j.ret > 0 {
		copy(j.userBuf, j.recvBuf[:j.ret])
	}
}
