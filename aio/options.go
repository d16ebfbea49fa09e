// File: aio/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for the AsyncIO façade.

package aio

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-aio/api"
)

// Options holds engine parameters immutable per instance.
type Options struct {
	Workers      int                // Number of worker goroutines in the pool
	LockOSThread bool               // Pin each worker to a dedicated OS thread
	Factory      api.ContextFactory // Per-worker context factory, may be nil
	Logger       logrus.FieldLogger // Injected logger; no global logger state
}

// DefaultOptions returns defaults suitable for typical workloads.
func DefaultOptions() Options {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return Options{
		Workers: 4,
		Logger:  l,
	}
}

// Option customizes engine initialization.
type Option func(*Options)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithLockOSThread pins every worker to its own OS thread, so contexts that
// carry thread-affine native handles stay valid for the worker's lifetime.
func WithLockOSThread() Option {
	return func(o *Options) { o.LockOSThread = true }
}

// WithContextFactory installs the per-worker context factory.
func WithContextFactory(f api.ContextFactory) Option {
	return func(o *Options) { o.Factory = f }
}

// WithLogger injects the logger used by the engine.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
