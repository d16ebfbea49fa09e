// File: reactor/reactor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/reactor"
)

func makePipe(t *testing.T) (int, int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPoller_DispatchesReadReadiness(t *testing.T) {
	p, err := reactor.NewPoller()
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	defer p.Close()

	rfd, wfd := makePipe(t)
	fired := make(chan api.FDEventType, 1)
	if err := p.Register(uintptr(rfd), api.EventRead, func(fd uintptr, et api.FDEventType) {
		fired <- et
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := unix.Write(wfd, []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := p.Poll(1000)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 1 {
		t.Fatalf("handled %d events, want 1", n)
	}
	select {
	case et := <-fired:
		if et&api.EventRead == 0 {
			t.Fatalf("expected read readiness, got %v", et)
		}
	default:
		t.Fatal("callback not dispatched")
	}
}

func TestPoller_UnregisterStopsDispatch(t *testing.T) {
	p, err := reactor.NewPoller()
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	defer p.Close()

	rfd, wfd := makePipe(t)
	if err := p.Register(uintptr(rfd), api.EventRead, func(uintptr, api.FDEventType) {
		t.Error("callback fired after unregister")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.Unregister(uintptr(rfd)); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	unix.Write(wfd, []byte{1})
	if _, err := p.Poll(50); err != nil {
		t.Fatalf("poll: %v", err)
	}
}

func TestPoller_TimeoutReturnsZero(t *testing.T) {
	p, err := reactor.NewPoller()
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	defer p.Close()

	start := time.Now()
	n, err := p.Poll(20)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 {
		t.Fatalf("handled %d events on an empty set", n)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("poll returned before the timeout")
	}
}

func TestPoller_CloseInterruptsBlockedPoll(t *testing.T) {
	p, err := reactor.NewPoller()
	if err != nil {
		t.Fatalf("poller: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			if _, err := p.Poll(-1); err != nil {
				close(done)
				return
			}
		}
	}()
	time.Sleep(20 * time.Millisecond)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close left an indefinitely blocked Poll behind")
	}
}

func TestPoller_PollAfterClose(t *testing.T) {
	p, err := reactor.NewPoller()
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := p.Poll(0); err != api.ErrPollerClosed {
		t.Fatalf("expected ErrPollerClosed, got %v", err)
	}
	if err := p.Close(); err != api.ErrPollerClosed {
		t.Fatalf("double close: expected ErrPollerClosed, got %v", err)
	}
}
