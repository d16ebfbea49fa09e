// File: aio/blocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking is the convenience view for callers that do not manage their own
// suspension: every request builds a scoped event notifier, so the calling
// goroutine simply blocks until the completion is delivered.

package aio

import "github.com/momentics/hioload-aio/notify"

// Blocking adapts the façade to plain blocking calls.
type Blocking struct {
	a *AsyncIO
}

// Pread blocks the calling goroutine until the read completes.
func (b Blocking) Pread(buf []byte, fd int, offset int64) (int, error) {
	return b.a.Pread(buf, fd, offset, notify.NewEvent())
}

// Write blocks the calling goroutine until the write completes.
func (b Blocking) Write(buf []byte, fd int) (int, error) {
	return b.a.Write(buf, fd, notify.NewEvent())
}

// Pwrite blocks the calling goroutine until the positional write completes.
func (b Blocking) Pwrite(buf []byte, fd int, offset int64) (int, error) {
	return b.a.Pwrite(buf, fd, offset, notify.NewEvent())
}

// Fsync blocks the calling goroutine until the fsync completes.
func (b Blocking) Fsync(fd int) error {
	return b.a.Fsync(fd, notify.NewEvent())
}

// Close blocks the calling goroutine until the close completes.
func (b Blocking) Close(fd int) error {
	return b.a.Close(fd, notify.NewEvent())
}

// Call blocks the calling goroutine until the delegate has run.
func (b Blocking) Call(fn Delegate) error {
	return b.a.Call(fn, notify.NewEvent())
}
