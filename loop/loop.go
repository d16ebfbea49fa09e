// File: loop/loop.go
// Package loop implements a minimal single-goroutine cooperative task
// runner driving a readiness multiplexer. Exactly one task executes at any
// instant; tasks suspend explicitly and are resumed by the loop goroutine,
// which is also the goroutine that dispatches poller callbacks. This is the
// execution environment the engine's task-bound notifier targets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/wakefd"
)

// Loop owns a Poller and a run queue of resumable tasks.
type Loop struct {
	poller api.Poller
	wake   *wakefd.WakeFD

	mu   sync.Mutex
	runq *taskRing

	current *Task // loop-goroutine only
	stopped atomic.Bool
}

// New builds a loop over the given multiplexer and registers its own wakeup
// descriptor, so cross-goroutine Spawn and Resume interrupt a blocked Poll.
func New(p api.Poller) (*Loop, error) {
	if p == nil {
		return nil, api.ErrInvalidArgument
	}
	w, err := wakefd.New()
	if err != nil {
		return nil, err
	}
	l := &Loop{
		poller: p,
		wake:   w,
		runq:   newTaskRing(64),
	}
	if err := p.Register(uintptr(w.ReadFD()), api.EventRead, l.onWake); err != nil {
		w.Close()
		return nil, err
	}
	return l, nil
}

func (l *Loop) onWake(fd uintptr, events api.FDEventType) {
	_ = l.wake.Drain()
}

// Spawn creates a task running fn and schedules it. Safe from any
// goroutine.
func (l *Loop) Spawn(fn func(*Task)) *Task {
	t := &Task{
		loop:   l,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	go func() {
		<-t.resume
		fn(t)
		t.done = true
		t.yield <- struct{}{}
	}()
	l.schedule(t)
	return t
}

// schedule queues a task for the loop goroutine and interrupts Poll.
func (l *Loop) schedule(t *Task) {
	l.mu.Lock()
	l.runq.push(t)
	l.mu.Unlock()
	_ = l.wake.Signal()
}

// Run drives tasks and the poller until Stop. Must be called from exactly
// one goroutine; that goroutine becomes the scheduler thread.
func (l *Loop) Run() error {
	for {
		for {
			l.mu.Lock()
			t := l.runq.pop()
			l.mu.Unlock()
			if t == nil {
				break
			}
			l.step(t)
		}
		if l.stopped.Load() {
			return nil
		}
		if _, err := l.poller.Poll(-1); err != nil {
			if errors.Is(err, api.ErrPollerClosed) {
				return nil
			}
			return err
		}
	}
}

// step runs one task until it suspends or completes. A task that already
// finished is dropped rather than resumed into a vanished goroutine.
func (l *Loop) step(t *Task) {
	if t.done {
		return
	}
	l.current = t
	t.resume <- struct{}{}
	<-t.yield
	l.current = nil
}

// Current returns the task being stepped. Loop-goroutine (that is, task
// code) only.
func (l *Loop) Current() *Task {
	return l.current
}

// Pending reports queued runnable tasks. Diagnostics and tests only.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runq.len()
}

// Stop makes Run return after the current drain. Safe from any goroutine.
func (l *Loop) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		_ = l.wake.Signal()
	}
}

// Close unregisters and releases the wakeup descriptor. Call after Run has
// returned.
func (l *Loop) Close() error {
	err := l.poller.Unregister(uintptr(l.wake.ReadFD()))
	if cerr := l.wake.Close(); err == nil {
		err = cerr
	}
	return err
}
