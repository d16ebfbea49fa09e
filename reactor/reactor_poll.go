//go:build unix && !linux

// File: reactor/reactor_poll.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// poll(2)-based fallback for unix platforms without epoll.

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/wakefd"
)

type pollEntry struct {
	events api.FDEventType
	cb     api.FDCallback
}

// pollPoller implements api.Poller with plain poll(2). An internal wakeup
// descriptor lets Close interrupt a Poll blocked with no timeout.
type pollPoller struct {
	mu       sync.Mutex
	entries  map[uintptr]pollEntry
	wake     *wakefd.WakeFD
	closed   atomic.Bool
	polling  atomic.Int32
	released atomic.Bool
}

// NewPoller creates the platform poller.
func NewPoller() (api.Poller, error) {
	w, err := wakefd.New()
	if err != nil {
		return nil, err
	}
	p := &pollPoller{entries: make(map[uintptr]pollEntry), wake: w}
	p.entries[uintptr(w.ReadFD())] = pollEntry{
		events: api.EventRead,
		cb:     func(uintptr, api.FDEventType) { _ = w.Drain() },
	}
	return p, nil
}

// Register adds a descriptor to the interest set.
func (p *pollPoller) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.entries[fd]; dup {
		return api.ErrInvalidArgument
	}
	p.entries[fd] = pollEntry{events: events, cb: cb}
	return nil
}

// Unregister removes a descriptor from the interest set.
func (p *pollPoller) Unregister(fd uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[fd]; !ok {
		return api.ErrInvalidArgument
	}
	delete(p.entries, fd)
	return nil
}

// Poll blocks up to timeoutMs and dispatches callbacks for ready
// descriptors.
func (p *pollPoller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, api.ErrPollerClosed
	}
	p.polling.Add(1)
	defer func() {
		if p.polling.Add(-1) == 0 && p.closed.Load() {
			p.release()
		}
	}()

	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.entries))
	cbs := make(map[int32]pollEntry, len(p.entries))
	for fd, e := range p.entries {
		var ev int16
		if e.events&api.EventRead != 0 {
			ev |= unix.POLLIN
		}
		if e.events&api.EventWrite != 0 {
			ev |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: ev})
		cbs[int32(fd)] = e
	}
	p.mu.Unlock()

	if _, err := unix.Poll(fds, timeoutMs); err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		if p.closed.Load() {
			return 0, api.ErrPollerClosed
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	if p.closed.Load() {
		return 0, api.ErrPollerClosed
	}

	handled := 0
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		var et api.FDEventType
		if pfd.Revents&unix.POLLIN != 0 {
			et |= api.EventRead
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			et |= api.EventWrite
		}
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			et |= api.EventError
		}
		e := cbs[pfd.Fd]
		dispatchPoll(e.cb, uintptr(pfd.Fd), et)
		handled++
	}
	return handled, nil
}

func dispatchPoll(cb api.FDCallback, fd uintptr, et api.FDEventType) {
	defer func() { _ = recover() }()
	cb(fd, et)
}

// Close marks the poller closed and signals the internal wakeup descriptor,
// so a Poll blocked with no timeout returns; the next Poll returns
// ErrPollerClosed.
func (p *pollPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return api.ErrPollerClosed
	}
	_ = p.wake.Signal()
	if p.polling.Load() == 0 {
		p.release()
	}
	return nil
}

// release closes the wakeup descriptor exactly once, after the last
// in-flight Poll has returned.
func (p *pollPoller) release() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	_ = p.wake.Close()
}
