// File: aio/jobqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// jobQueue owns the growable pool of Job records. One mutex guards every
// slot state transition; a counting semaphore carries the "work available"
// signal to the worker pool. Slots are allocated individually and the
// backing slice only ever appends pointers, so a *Job held by a worker
// across a blocking syscall stays valid when the pool grows.

package aio

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/internal/concurrency"
)

type jobQueue struct {
	mu     sync.Mutex
	slots  []*Job
	sem    *concurrency.Semaphore
	cancel bool
	// hint rotates the start of the claim scan so long-lived busy slots at
	// the front are not rescanned on every claim.
	hint int
}

func newJobQueue() *jobQueue {
	return &jobQueue{sem: concurrency.NewSemaphore()}
}

// reserve finds a free slot or grows the pool, resets transient fields, and
// marks the slot reserved-and-unclaimed. Never blocks: the pool is unbounded
// by design so requests beyond the worker count queue up instead of
// deadlocking. Returns nil once shutdown has begun.
func (q *jobQueue) reserve() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel {
		return nil
	}
	for _, j := range q.slots {
		if j.slotFree && !j.taken {
			j.slotFree = false
			j.resetTransient()
			return j
		}
	}
	j := &Job{q: q, fd: -1}
	q.slots = append(q.slots, j)
	return j
}

// post marks a reserved job fully populated and signals the worker pool.
// The mutexed flag is what publishes the request fields to whichever worker
// eventually claims the slot. Returns false if shutdown won the race: the
// job was never made visible to workers, its errno cell is set to
// ECANCELED, and the caller must consume the result inline without waiting.
func (q *jobQueue) post(j *Job) bool {
	q.mu.Lock()
	if q.cancel {
		j.errno = unix.ECANCELED
		q.mu.Unlock()
		return false
	}
	j.posted = true
	q.mu.Unlock()
	q.sem.Post()
	return true
}

// take claims the first reserved-and-unclaimed slot for the calling worker.
// Returns nil if shutdown is in progress or no job is waiting; a worker
// receiving nil after a semaphore wait must exit its loop.
func (q *jobQueue) take() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel {
		return nil
	}
	n := len(q.slots)
	for i := 0; i < n; i++ {
		j := q.slots[(q.hint+i)%n]
		if !j.slotFree && !j.taken && j.posted {
			j.taken = true
			j.posted = false
			q.hint = (q.hint + i + 1) % n
			return j
		}
	}
	return nil
}

// recycle returns a slot to the free pool and reports whether the queue is
// still serving jobs. Safe to call for both claimed and never-claimed slots
// (the discard path may recycle a job a worker already released).
func (q *jobQueue) recycle(j *Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	j.taken = false
	j.slotFree = true
	return !q.cancel
}

// stop flags the queue so further reservations and claims fail, sweeps the
// posted-but-unclaimed jobs no worker will ever serve (their errno cells are
// set to ECANCELED so their waiters can still be woken with an error), then
// posts the semaphore once per worker so every blocked worker wakes,
// observes the flag, and exits.
func (q *jobQueue) stop(workers int) []*Job {
	q.mu.Lock()
	q.cancel = true
	var canceled []*Job
	for _, j := range q.slots {
		if !j.slotFree && !j.taken && j.posted {
			j.posted = false
			j.errno = unix.ECANCELED
			canceled = append(canceled, j)
		}
	}
	q.mu.Unlock()
	for i := 0; i < workers; i++ {
		q.sem.Post()
	}
	return canceled
}

// size reports the current slot count. Diagnostics and tests only.
func (q *jobQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}
