// File: aio/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-worker main loop: wait on the job semaphore, claim the next posted
// slot, perform the blocking syscall or delegate, store the result cells,
// and hand the job to the completion hub. Workers exit when a semaphore
// post is not backed by a claimable job (the shutdown handshake).

package aio

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
)

// runWorker is the body of one pool goroutine. initDone must be signaled
// exactly once, whether or not context creation succeeds, so the
// constructor's startup handshake always completes.
func (a *AsyncIO) runWorker(id int) error {
	if a.opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	wctx, err := a.makeWorkerContext()
	if err != nil {
		err = fmt.Errorf("worker %d context init: %w", id, err)
		a.initMu.Lock()
		if a.initErr == nil {
			a.initErr = err
		}
		a.initMu.Unlock()
		a.initDone.Done()
		return err
	}
	a.initDone.Done()
	if wctx != nil {
		defer func() {
			if cerr := wctx.Close(); cerr != nil {
				a.log.WithError(cerr).WithField("worker", id).Warn("context close failed")
			}
		}()
	}
	a.log.WithField("worker", id).Debug("worker started")

	for {
		a.queue.sem.Wait()
		j := a.queue.take()
		if j == nil {
			a.log.WithField("worker", id).Debug("worker exiting")
			return nil
		}
		a.execute(j, wctx)
		a.hub.requestReady(j)
	}
}

// makeWorkerContext runs the context factory under the shared init mutex so
// a non-reentrant factory is never invoked concurrently.
func (a *AsyncIO) makeWorkerContext() (ctx api.Context, err error) {
	if a.opts.Factory == nil {
		return nil, nil
	}
	a.initMu.Lock()
	defer a.initMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("context factory panic: %v", r)
		}
	}()
	return a.opts.Factory.NewContext(), nil
}

// execute performs the blocking operation for a claimed job, retrying
// EINTR, and stores the return value and errno cells.
func (a *AsyncIO) execute(j *Job, wctx api.Context) {
	switch j.cmd {
	case CmdRead:
		j.ret, j.errno = retrying(func() (int, error) {
			return unix.Pread(j.fd, j.recvBuf, j.offset)
		})
	case CmdWrite:
		if j.offset >= 0 {
			j.ret, j.errno = retrying(func() (int, error) {
				return unix.Pwrite(j.fd, j.userBuf, j.offset)
			})
		} else {
			j.ret, j.errno = retrying(func() (int, error) {
				return unix.Write(j.fd, j.userBuf)
			})
		}
	case CmdFsync:
		j.ret, j.errno = retrying(func() (int, error) {
			return 0, unix.Fsync(j.fd)
		})
	case CmdClose:
		j.ret, j.errno = retrying(func() (int, error) {
			return 0, unix.Close(j.fd)
		})
	case CmdCall:
		j.runDelegate(wctx)
	}
}

// runDelegate invokes the user delegate on the worker, translating an
// errno-typed failure into the errno cell and anything else into callEr.
func (j *Job) runDelegate(wctx api.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.callEr = fmt.Errorf("delegate panic: %v", r)
		}
	}()
	if err := j.delegate(wctx); err != nil {
		if errno, ok := err.(unix.Errno); ok {
			j.errno = errno
			return
		}
		j.callEr = err
	}
}

// retrying repeats an interrupted syscall and splits its result into the
// job's return-value and errno cells.
func retrying(call func() (int, error)) (int, unix.Errno) {
	for {
		n, err := call()
		if err == nil {
			return n, 0
		}
		errno, ok := err.(unix.Errno)
		if !ok {
			return n, unix.EIO
		}
		if errno == unix.EINTR {
			continue
		}
		return n, errno
	}
}
