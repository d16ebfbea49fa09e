//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-based poller.

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/wakefd"
)

const maxEvents = 128

// epollPoller implements api.Poller using level-triggered epoll. An internal
// wakeup descriptor lets Close interrupt a Poll blocked with no timeout;
// closing the epoll descriptor alone would leave such a Poll blocked.
type epollPoller struct {
	epfd      int
	wake      *wakefd.WakeFD
	callbacks sync.Map // uintptr -> api.FDCallback
	closed    atomic.Bool
	polling   atomic.Int32
	released  atomic.Bool
}

// NewPoller creates the platform poller.
func NewPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	w, err := wakefd.New()
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{epfd: epfd, wake: w}
	if err := p.Register(uintptr(w.ReadFD()), api.EventRead, func(uintptr, api.FDEventType) {
		_ = w.Drain()
	}); err != nil {
		w.Close()
		unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

// Register adds a descriptor to the epoll interest set.
func (p *epollPoller) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	var ev unix.EpollEvent
	if events&api.EventRead != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if events&api.EventWrite != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	ev.Fd = int32(fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	p.callbacks.Store(fd, cb)
	return nil
}

// Unregister removes a descriptor from the interest set.
func (p *epollPoller) Unregister(fd uintptr) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	p.callbacks.Delete(fd)
	return nil
}

// Poll blocks up to timeoutMs and dispatches callbacks for ready
// descriptors. timeoutMs < 0 blocks indefinitely.
func (p *epollPoller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, api.ErrPollerClosed
	}
	p.polling.Add(1)
	defer func() {
		if p.polling.Add(-1) == 0 && p.closed.Load() {
			p.release()
		}
	}()

	var events [maxEvents]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		if p.closed.Load() {
			return 0, api.ErrPollerClosed
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	handled := 0
	for i := 0; i < n; i++ {
		ev := events[i]
		fd := uintptr(ev.Fd)
		val, ok := p.callbacks.Load(fd)
		if !ok {
			continue
		}
		var et api.FDEventType
		if ev.Events&unix.EPOLLIN != 0 {
			et |= api.EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			et |= api.EventWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			et |= api.EventError
		}
		cb, _ := val.(api.FDCallback)
		dispatch(cb, fd, et)
		handled++
	}
	return handled, nil
}

// dispatch shields the poll loop from a panicking callback.
func dispatch(cb api.FDCallback, fd uintptr, et api.FDEventType) {
	defer func() { _ = recover() }()
	cb(fd, et)
}

// Close marks the poller closed and signals the internal wakeup descriptor,
// so a Poll blocked with no timeout returns; the next Poll returns
// ErrPollerClosed.
func (p *epollPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return api.ErrPollerClosed
	}
	_ = p.wake.Signal()
	if p.polling.Load() == 0 {
		p.release()
	}
	return nil
}

// release closes the descriptors exactly once, after the last in-flight
// Poll has left the epoll wait.
func (p *epollPoller) release() {
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	unix.Close(p.epfd)
	_ = p.wake.Close()
}
