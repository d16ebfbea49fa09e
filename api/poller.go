// File: api/poller.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral readiness multiplexer contract. The engine registers its
// wakeup descriptor with a Poller and relies on the poll loop to invoke the
// registered callback on the scheduler goroutine when completions arrive.

package api

// FDEventType is a bitmask of readiness conditions reported for a descriptor.
type FDEventType int

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback is invoked by the Poller when a registered descriptor is ready.
// It runs on the goroutine driving Poll.
type FDCallback func(fd uintptr, events FDEventType)

// Poller is an edge-level readiness multiplexer over file descriptors.
type Poller interface {
	// Register adds a descriptor to the interest set with a dispatch callback.
	Register(fd uintptr, events FDEventType, cb FDCallback) error

	// Unregister removes a descriptor from the interest set.
	Unregister(fd uintptr) error

	// Poll blocks up to timeoutMs (negative means indefinitely), dispatching
	// callbacks for ready descriptors. Returns the number of events handled.
	Poll(timeoutMs int) (int, error)

	// Close releases the multiplexer. Poll returns ErrPollerClosed afterwards.
	Close() error
}
