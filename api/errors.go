// File: api/errors.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and the offload-operation error taxonomy for hioload-aio.

package api

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Common errors used across the library.
var (
	ErrEngineClosed    = fmt.Errorf("async engine is closed")
	ErrPollerClosed    = fmt.Errorf("poller is closed")
	ErrNoSuspend       = fmt.Errorf("notifier has no suspend capability")
	ErrNotSupported    = fmt.Errorf("operation not supported on this platform")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// OpError is the error surfaced to a resumed caller when an offloaded
// blocking operation failed. It carries the operation name ("pread", "write",
// "fsync", "close", "delegate call") and the errno saved by the worker.
//
// For delegate calls that fail with a non-errno error, Cause holds the
// delegate's error and Errno is zero.
type OpError struct {
	Op    string
	Errno unix.Errno
	Cause error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Errno)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *OpError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// NewOpError builds an OpError from a saved errno.
func NewOpError(op string, errno unix.Errno) *OpError {
	return &OpError{Op: op, Errno: errno}
}
