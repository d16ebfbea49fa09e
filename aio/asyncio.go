// File: aio/asyncio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AsyncIO is the engine façade. It owns the job queue, the completion hub,
// and the worker pool, and exposes blocking-style request methods that
// follow one pattern: reserve a slot, populate it, post the semaphore,
// suspend through the caller's Notifier, then on resume inspect the result
// cells and return or fail. Errors appear to the caller as if the blocking
// call itself had failed in line.

package aio

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-aio/api"
)

// AsyncIO offloads blocking file operations and delegates to a fixed pool
// of workers while callers suspend through pluggable Notifiers.
type AsyncIO struct {
	queue *jobQueue
	hub   *completionHub
	grp   *errgroup.Group
	opts  Options
	log   logrus.FieldLogger

	initMu   sync.Mutex
	initDone sync.WaitGroup
	initErr  error

	closed atomic.Bool
}

// New spawns the worker pool, registers the completion hub's wakeup
// descriptor with the multiplexer, and blocks until every worker has run
// the context factory and signaled readiness.
func New(p api.Poller, opts ...Option) (*AsyncIO, error) {
	if p == nil {
		return nil, api.ErrInvalidArgument
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	a := &AsyncIO{
		queue: newJobQueue(),
		opts:  o,
		log:   o.Logger,
	}
	hub, err := newCompletionHub(p, o.Logger)
	if err != nil {
		return nil, err
	}
	a.hub = hub

	a.grp = &errgroup.Group{}
	a.initDone.Add(o.Workers)
	for i := 0; i < o.Workers; i++ {
		id := i
		a.grp.Go(func() error { return a.runWorker(id) })
	}
	a.initDone.Wait()

	a.initMu.Lock()
	initErr := a.initErr
	a.initMu.Unlock()
	if initErr != nil {
		// A worker failed to build its context; the pool is unusable.
		if terr := a.teardown(); terr != nil {
			return nil, multierror.Append(initErr, terr)
		}
		return nil, initErr
	}
	return a, nil
}

// Pread reads len(buf) bytes from fd at offset into buf, suspending the
// caller through n. Returns the byte count, or an OpError tagged "pread".
// The worker reads into an engine-owned buffer; the copy into buf happens
// at completion on the resuming side, so a discarded caller's memory is
// never written from a worker.
func (a *AsyncIO) Pread(buf []byte, fd int, offset int64, n api.Notifier) (int, error) {
	j := a.queue.reserve()
	if j == nil {
		return 0, api.ErrEngineClosed
	}
	j.cmd = CmdRead
	j.fd = fd
	j.offset = offset
	j.userBuf = buf
	j.growRecv(len(buf))
	j.finalize = finalizeRead
	j.notify = n
	if a.queue.post(j) {
		n.Wait(j.discardFunc())
	}
	return consume(j)
}

// Write writes buf to fd at its current file position. The buffer is used
// in place by the worker, which only reads it; the caller must keep buf
// alive and unmodified until the notifier fires.
func (a *AsyncIO) Write(buf []byte, fd int, n api.Notifier) (int, error) {
	return a.write(buf, fd, -1, n)
}

// Pwrite writes buf to fd at the given offset. Same aliasing discipline as
// Write.
func (a *AsyncIO) Pwrite(buf []byte, fd int, offset int64, n api.Notifier) (int, error) {
	if offset < 0 {
		return 0, api.ErrInvalidArgument
	}
	return a.write(buf, fd, offset, n)
}

func (a *AsyncIO) write(buf []byte, fd int, offset int64, n api.Notifier) (int, error) {
	j := a.queue.reserve()
	if j == nil {
		return 0, api.ErrEngineClosed
	}
	j.cmd = CmdWrite
	j.fd = fd
	j.offset = offset
	j.userBuf = buf
	j.notify = n
	if a.queue.post(j) {
		n.Wait(j.discardFunc())
	}
	return consume(j)
}

// Fsync flushes fd to stable storage.
func (a *AsyncIO) Fsync(fd int, n api.Notifier) error {
	return a.fdOnly(CmdFsync, fd, n)
}

// Close closes fd on a worker.
func (a *AsyncIO) Close(fd int, n api.Notifier) error {
	return a.fdOnly(CmdClose, fd, n)
}

func (a *AsyncIO) fdOnly(cmd Command, fd int, n api.Notifier) error {
	j := a.queue.reserve()
	if j == nil {
		return api.ErrEngineClosed
	}
	j.cmd = cmd
	j.fd = fd
	j.notify = n
	if a.queue.post(j) {
		n.Wait(j.discardFunc())
	}
	_, err := consume(j)
	return err
}

// Call runs fn on a worker goroutine, passing that worker's Context. fn
// must not touch scheduler-side state; everything it closes over crosses
// into the worker pool.
func (a *AsyncIO) Call(fn Delegate, n api.Notifier) error {
	if fn == nil {
		return api.ErrInvalidArgument
	}
	j := a.queue.reserve()
	if j == nil {
		return api.ErrEngineClosed
	}
	j.cmd = CmdCall
	j.delegate = fn
	j.notify = n
	if a.queue.post(j) {
		n.Wait(j.discardFunc())
	}
	_, err := consume(j)
	return err
}

// consume reads the result cells of a completed job and recycles the slot.
func consume(j *Job) (int, error) {
	ret, err := j.Result()
	j.Recycle()
	return ret, err
}

// Nonblocking returns the view whose request methods register the notifier
// and hand back the in-flight *Job without suspending the caller.
func (a *AsyncIO) Nonblocking() Nonblocking {
	return Nonblocking{a: a}
}

// Blocking returns the convenience view that builds a scoped event notifier
// per call, so plain goroutines can use the engine without supplying one.
func (a *AsyncIO) Blocking() Blocking {
	return Blocking{a: a}
}

// QueueDepth reports the current slot-pool size. Diagnostics only.
func (a *AsyncIO) QueueDepth() int {
	return a.queue.size()
}

// Destroy stops the engine: no further requests are accepted, every worker
// is woken and joined, remaining queued completions are drained (waiters
// are woken or discarded), and the wakeup descriptor is released. Not safe
// to call twice; the second call returns ErrEngineClosed.
func (a *AsyncIO) Destroy() error {
	if !a.closed.CompareAndSwap(false, true) {
		return api.ErrEngineClosed
	}
	return a.teardown()
}

func (a *AsyncIO) teardown() error {
	var merr *multierror.Error

	canceled := a.queue.stop(a.opts.Workers)
	if err := a.grp.Wait(); err != nil {
		merr = multierror.Append(merr, err)
	}
	// Workers are gone. Route the swept jobs through the hub and deliver
	// everything still queued, so no waiter is left suspended.
	for _, j := range canceled {
		a.hub.requestReady(j)
	}
	a.hub.drain()
	if err := a.hub.close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
