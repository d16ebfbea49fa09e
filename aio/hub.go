// File: aio/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// completionHub bridges worker-side completions back to the scheduler
// goroutine. Workers append finished jobs to a mutexed FIFO and arm a wakeup
// descriptor; the readiness multiplexer dispatches on the scheduler side,
// where the hub drains the whole list and wakes (or discards) each waiter.

package aio

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/wakefd"
)

type completionHub struct {
	mu     sync.Mutex
	ready  *queue.Queue // FIFO of *Job
	wake   *wakefd.WakeFD
	poller api.Poller
	log    logrus.FieldLogger
}

// newCompletionHub creates the hub and registers its wakeup descriptor with
// the caller's multiplexer.
func newCompletionHub(p api.Poller, log logrus.FieldLogger) (*completionHub, error) {
	w, err := wakefd.New()
	if err != nil {
		return nil, err
	}
	h := &completionHub{
		ready:  queue.New(),
		wake:   w,
		poller: p,
		log:    log,
	}
	if err := p.Register(uintptr(w.ReadFD()), api.EventRead, h.onReadable); err != nil {
		w.Close()
		return nil, err
	}
	return h, nil
}

// requestReady is the worker-side entry point: queue the job and arm the
// wakeup descriptor. The critical section is a single append.
func (h *completionHub) requestReady(j *Job) {
	h.mu.Lock()
	h.ready.Add(j)
	h.mu.Unlock()
	if err := h.wake.Signal(); err != nil {
		h.log.WithError(err).Error("completion wakeup failed")
	}
}

// onReadable runs on the goroutine driving the multiplexer. It consumes the
// wakeup signal and delivers every queued completion.
func (h *completionHub) onReadable(fd uintptr, events api.FDEventType) {
	if err := h.wake.Drain(); err != nil {
		h.log.WithError(err).Error("wakeup drain failed")
	}
	h.drain()
}

// drain empties the ready list, then delivers outside the lock: for each job
// either the finalize/callback/wake path runs, or a discarded completion is
// swallowed and the slot recycled by the hub itself.
func (h *completionHub) drain() {
	h.mu.Lock()
	var jobs []*Job
	for h.ready.Length() > 0 {
		jobs = append(jobs, h.ready.Remove().(*Job))
	}
	h.mu.Unlock()

	for _, j := range jobs {
		h.deliver(j)
	}
}

func (h *completionHub) deliver(j *Job) {
	n := j.notify
	if n == nil || n.Discarded() {
		h.log.WithField("op", j.cmd.opName()).Debug("completion discarded")
		j.q.recycle(j)
		return
	}
	j.finished()
	n.Wake()
}

// close unregisters the wakeup descriptor and releases it. The remaining
// ready list must have been drained first.
func (h *completionHub) close() error {
	err := h.poller.Unregister(uintptr(h.wake.ReadFD()))
	if cerr := h.wake.Close(); err == nil {
		err = cerr
	}
	return err
}
