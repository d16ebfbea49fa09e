//go:build linux

// File: internal/wakefd/wakefd_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux wakeup descriptor backed by eventfd(2). Workers signal it when a
// completion is queued; the scheduler-side poll loop watches it for
// readability and drains it before draining the ready list.

package wakefd

import "golang.org/x/sys/unix"

// WakeFD is a cross-thread wakeup primitive with a pollable read side.
type WakeFD struct {
	efd int
}

// New creates a nonblocking eventfd-backed WakeFD.
func New() (*WakeFD, error) {
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &WakeFD{efd: efd}, nil
}

// ReadFD returns the descriptor to register with the readiness multiplexer.
func (w *WakeFD) ReadFD() int { return w.efd }

// Signal arms the read side. Safe to call from any goroutine.
func (w *WakeFD) Signal() error {
	var buf [8]byte
	buf[0] = 1
	for {
		_, err := unix.Write(w.efd, buf[:])
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// Counter saturated; the read side is already armed.
			return nil
		default:
			return err
		}
	}
}

// Drain consumes any pending signal so the descriptor stops polling ready.
func (w *WakeFD) Drain() error {
	var buf [8]byte
	for {
		_, err := unix.Read(w.efd, buf[:])
		switch err {
		case nil, unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil
		default:
			return err
		}
	}
}

// Close releases the descriptor.
func (w *WakeFD) Close() error {
	return unix.Close(w.efd)
}
