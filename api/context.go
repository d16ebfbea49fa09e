// File: api/context.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-worker context extension point. Calling code implements Context to
// carry native per-thread handles (library handles, arenas, descriptors)
// that must be created once per worker and never shared across workers.

package api

// Context carries worker-local state created by a ContextFactory.
// A Context instance is owned by exactly one worker; the engine never
// shares it and closes it when the worker exits.
type Context interface {
	// Close releases any native resources held by the context.
	Close() error
}

// ContextFactory creates a fresh Context for each worker.
// The engine serializes NewContext calls under a single init mutex, so the
// factory does not need to be safe against concurrent invocation.
type ContextFactory interface {
	NewContext() Context
}

// ContextFactoryFunc adapts a plain function to the ContextFactory interface.
type ContextFactoryFunc func() Context

// NewContext implements ContextFactory.
func (f ContextFactoryFunc) NewContext() Context { return f() }

// NopContext is a Context with no native state.
type NopContext struct{}

// Close implements Context.
func (NopContext) Close() error { return nil }
