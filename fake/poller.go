// File: fake/poller.go
// Package fake provides in-memory test doubles for the library's contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-aio/api"
)

// Poller is an api.Poller that never touches real descriptors. Tests mark
// descriptors ready with Ready; Poll dispatches those callbacks in order.
type Poller struct {
	mu      sync.Mutex
	cbs     map[uintptr]api.FDCallback
	pending chan uintptr
	done    chan struct{}
	once    sync.Once
}

// NewPoller returns an empty fake poller.
func NewPoller() *Poller {
	return &Poller{
		cbs:     make(map[uintptr]api.FDCallback),
		pending: make(chan uintptr, 128),
		done:    make(chan struct{}),
	}
}

// Register implements api.Poller.
func (p *Poller) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.cbs[fd]; dup {
		return api.ErrInvalidArgument
	}
	p.cbs[fd] = cb
	return nil
}

// Unregister implements api.Poller.
func (p *Poller) Unregister(fd uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.cbs[fd]; !ok {
		return api.ErrInvalidArgument
	}
	delete(p.cbs, fd)
	return nil
}

// Ready marks fd readable; the next Poll dispatches its callback.
func (p *Poller) Ready(fd uintptr) {
	select {
	case p.pending <- fd:
	case <-p.done:
	}
}

// Registered reports whether fd is currently in the interest set.
func (p *Poller) Registered(fd uintptr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cbs[fd]
	return ok
}

// Poll implements api.Poller by draining pending readiness marks.
func (p *Poller) Poll(timeoutMs int) (int, error) {
	var timeout <-chan time.Time
	if timeoutMs >= 0 {
		timeout = time.After(time.Duration(timeoutMs) * time.Millisecond)
	}
	select {
	case fd := <-p.pending:
		p.mu.Lock()
		cb := p.cbs[fd]
		p.mu.Unlock()
		if cb != nil {
			cb(fd, api.EventRead)
		}
		return 1, nil
	case <-timeout:
		return 0, nil
	case <-p.done:
		return 0, api.ErrPollerClosed
	}
}

// Close implements api.Poller.
func (p *Poller) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
