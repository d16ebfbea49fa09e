// File: aio/nonblocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Nonblocking mirrors the façade's request methods but never suspends the
// caller: the notifier is registered, the job is posted, and the in-flight
// *Job is returned so the caller can suspend on its own schedule (for
// example to distinguish "woken by network" from "woken by disk" before
// deciding to block). Completion callbacks run on the scheduler side, in
// order, before the notifier is woken.
//
// The caller owns the returned *Job until it calls Recycle, which must
// happen only after the completion has been delivered and every result
// field consumed. A discarded request is recycled by the engine instead.

package aio

import "github.com/momentics/hioload-aio/api"

// Nonblocking is the non-suspending view over an AsyncIO engine.
type Nonblocking struct {
	a *AsyncIO
}

// Pread starts an offloaded read and returns the in-flight job.
func (nb Nonblocking) Pread(buf []byte, fd int, offset int64, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	j := nb.a.queue.reserve()
	if j == nil {
		return nil, api.ErrEngineClosed
	}
	j.cmd = CmdRead
	j.fd = fd
	j.offset = offset
	j.userBuf = buf
	j.growRecv(len(buf))
	j.finalize = finalizeRead
	return nb.launch(j, n, callbacks)
}

// Write starts an offloaded positional write at the fd's current offset.
func (nb Nonblocking) Write(buf []byte, fd int, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	j := nb.a.queue.reserve()
	if j == nil {
		return nil, api.ErrEngineClosed
	}
	j.cmd = CmdWrite
	j.fd = fd
	j.offset = -1
	j.userBuf = buf
	return nb.launch(j, n, callbacks)
}

// Pwrite starts an offloaded write at the given offset.
func (nb Nonblocking) Pwrite(buf []byte, fd int, offset int64, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	if offset < 0 {
		return nil, api.ErrInvalidArgument
	}
	j := nb.a.queue.reserve()
	if j == nil {
		return nil, api.ErrEngineClosed
	}
	j.cmd = CmdWrite
	j.fd = fd
	j.offset = offset
	j.userBuf = buf
	return nb.launch(j, n, callbacks)
}

// Fsync starts an offloaded fsync.
func (nb Nonblocking) Fsync(fd int, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	return nb.fdOnly(CmdFsync, fd, n, callbacks)
}

// Close starts an offloaded close.
func (nb Nonblocking) Close(fd int, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	return nb.fdOnly(CmdClose, fd, n, callbacks)
}

func (nb Nonblocking) fdOnly(cmd Command, fd int, n api.Notifier, callbacks []func(*Job)) (*Job, error) {
	j := nb.a.queue.reserve()
	if j == nil {
		return nil, api.ErrEngineClosed
	}
	j.cmd = cmd
	j.fd = fd
	return nb.launch(j, n, callbacks)
}

// Call starts an offloaded delegate invocation.
func (nb Nonblocking) Call(fn Delegate, n api.Notifier, callbacks ...func(*Job)) (*Job, error) {
	if fn == nil {
		return nil, api.ErrInvalidArgument
	}
	j := nb.a.queue.reserve()
	if j == nil {
		return nil, api.ErrEngineClosed
	}
	j.cmd = CmdCall
	j.delegate = fn
	return nb.launch(j, n, callbacks)
}

// launch registers the notifier, attaches callbacks, and posts the job.
// If shutdown won the race the canceled completion is delivered in place:
// the hub's ready list may already be drained and its wakeup descriptor
// closed, so enqueueing would strand the waiter. The caller still observes
// exactly one delivery.
func (nb Nonblocking) launch(j *Job, n api.Notifier, callbacks []func(*Job)) (*Job, error) {
	j.callbacks = callbacks
	j.notify = n
	if n != nil {
		n.Register(j.discardFunc())
	}
	if !nb.a.queue.post(j) {
		nb.a.hub.deliver(j)
	}
	return j, nil
}
