//go:build unix && !linux

// File: internal/wakefd/wakefd_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-pipe fallback for unix platforms without eventfd(2).

package wakefd

import "golang.org/x/sys/unix"

// WakeFD is a cross-thread wakeup primitive with a pollable read side.
type WakeFD struct {
	rfd int
	wfd int
}

// New creates a nonblocking self-pipe-backed WakeFD.
func New() (*WakeFD, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, err
		}
	}
	return &WakeFD{rfd: fds[0], wfd: fds[1]}, nil
}

// ReadFD returns the descriptor to register with the readiness multiplexer.
func (w *WakeFD) ReadFD() int { return w.rfd }

// Signal arms the read side. Safe to call from any goroutine.
func (w *WakeFD) Signal() error {
	buf := [1]byte{1}
	for {
		_, err := unix.Write(w.wfd, buf[:])
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// Pipe full; the read side is already armed.
			return nil
		default:
			return err
		}
	}
}

// Drain consumes any pending signal so the descriptor stops polling ready.
func (w *WakeFD) Drain() error {
	var buf [64]byte
	for {
		_, err := unix.Read(w.rfd, buf[:])
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

// Close releases both ends of the pipe.
func (w *WakeFD) Close() error {
	err := unix.Close(w.rfd)
	if err2 := unix.Close(w.wfd); err == nil {
		err = err2
	}
	return err
}
