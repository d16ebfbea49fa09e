// File: aio/asyncio_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// End-to-end engine tests against real files and the platform poller.

package aio_test

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/aio"
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/loop"
	"github.com/momentics/hioload-aio/notify"
	"github.com/momentics/hioload-aio/reactor"
)

// startPoller spins up the platform poller with a background drive loop.
func startPoller(t *testing.T) api.Poller {
	t.Helper()
	p, err := reactor.NewPoller()
	require.NoError(t, err)
	go func() {
		for {
			if _, err := p.Poll(50); err != nil {
				return
			}
		}
	}()
	t.Cleanup(func() { p.Close() })
	return p
}

func tempFD(t *testing.T) int {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "aio-*")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return int(f.Fd())
}

func TestAsyncIO_RoundTrip(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(2))
	require.NoError(t, err)
	defer engine.Destroy()

	fd := tempFD(t)
	blocking := engine.Blocking()

	for _, size := range []int{0, 1, 4096, 1 << 20} {
		payload := make([]byte, size)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		n, err := blocking.Pwrite(payload, fd, 0)
		require.NoError(t, err)
		require.Equal(t, size, n)

		require.NoError(t, blocking.Fsync(fd))

		back := make([]byte, size)
		n, err = blocking.Pread(back, fd, 0)
		require.NoError(t, err)
		require.Equal(t, size, n)
		require.True(t, bytes.Equal(payload, back[:n]), "size %d round-trip mismatch", size)
	}
}

func TestAsyncIO_WriteAdvancesFileOffset(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(1))
	require.NoError(t, err)
	defer engine.Destroy()

	fd := tempFD(t)
	blocking := engine.Blocking()

	for _, chunk := range []string{"abc", "def"} {
		n, err := blocking.Write([]byte(chunk), fd)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
	}
	back := make([]byte, 6)
	n, err := blocking.Pread(back, fd, 0)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(back[:n]))
}

func TestAsyncIO_PreadBadFDPropagatesError(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(1))
	require.NoError(t, err)
	defer engine.Destroy()

	buf := make([]byte, 16)
	_, err = engine.Blocking().Pread(buf, -1, 0)
	require.Error(t, err)

	var opErr *api.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "pread", opErr.Op)
	assert.NotZero(t, opErr.Errno)
}

func TestAsyncIO_CloseBadFDPropagatesError(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(1))
	require.NoError(t, err)
	defer engine.Destroy()

	err = engine.Blocking().Close(-1)
	var opErr *api.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "close", opErr.Op)
	assert.Equal(t, unix.EBADF, opErr.Errno)
}

// TestAsyncIO_NoLostWakeups issues many more requests than workers and
// asserts every one completes.
func TestAsyncIO_NoLostWakeups(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(4))
	require.NoError(t, err)
	defer engine.Destroy()

	fd := tempFD(t)
	payload := []byte("0123456789abcdef")
	_, err = engine.Blocking().Pwrite(payload, fd, 0)
	require.NoError(t, err)

	const requests = 200
	var completions atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, len(payload))
			n, err := engine.Blocking().Pread(buf, fd, 0)
			if err == nil && n == len(payload) {
				completions.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, requests, completions.Load())
}

type counterCtx struct {
	id    int
	calls int
}

func (c *counterCtx) Close() error { return nil }

type counterFactory struct {
	mu   sync.Mutex
	next int
	made []*counterCtx
}

func (f *counterFactory) NewContext() api.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &counterCtx{id: f.next}
	f.next++
	f.made = append(f.made, c)
	return c
}

// TestAsyncIO_CallContextIsolation checks every concurrent delegate gets a
// previously constructed per-worker context, never a shared one.
func TestAsyncIO_CallContextIsolation(t *testing.T) {
	const workers = 3
	p := startPoller(t)
	factory := &counterFactory{}
	engine, err := aio.New(p,
		aio.WithWorkers(workers),
		aio.WithLockOSThread(),
		aio.WithContextFactory(factory),
	)
	require.NoError(t, err)
	defer engine.Destroy()

	require.Len(t, factory.made, workers, "constructor must block until all contexts exist")

	const calls = 120
	seen := sync.Map{}
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := engine.Blocking().Call(func(ctx api.Context) error {
				c := ctx.(*counterCtx)
				// Workers run serially over their own context; no lock needed.
				c.calls++
				seen.Store(c, true)
				time.Sleep(time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total := 0
	distinct := 0
	seen.Range(func(k, v any) bool {
		distinct++
		total += k.(*counterCtx).calls
		return true
	})
	assert.Equal(t, calls, total, "per-context call counts must sum to total")
	assert.LessOrEqual(t, distinct, workers)
}

func TestAsyncIO_CallErrnoAndErrorPropagation(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(1))
	require.NoError(t, err)
	defer engine.Destroy()

	err = engine.Blocking().Call(func(api.Context) error { return unix.ENOSPC })
	var opErr *api.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "delegate call", opErr.Op)
	assert.Equal(t, unix.ENOSPC, opErr.Errno)

	sentinel := errors.New("domain failure")
	err = engine.Blocking().Call(func(api.Context) error { return sentinel })
	require.True(t, errors.As(err, &opErr))
	assert.True(t, errors.Is(err, sentinel))
}

// TestAsyncIO_NonblockingPread verifies the handle returns immediately and
// the completion is delivered exactly once.
func TestAsyncIO_NonblockingPread(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(2))
	require.NoError(t, err)
	defer engine.Destroy()

	fd := tempFD(t)
	payload := []byte("nonblocking payload")
	_, err = engine.Blocking().Pwrite(payload, fd, 0)
	require.NoError(t, err)

	var fired atomic.Int64
	done := make(chan struct{})
	buf := make([]byte, len(payload))
	ev := notify.NewEvent()

	start := time.Now()
	job, err := engine.Nonblocking().Pread(buf, fd, 0, ev, func(j *aio.Job) {
		if fired.Add(1) == 1 {
			close(done)
		}
	})
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Less(t, time.Since(start), time.Second, "nonblocking submit must not block")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("completion callback never fired")
	}
	ev.Wait(nil) // already woken; must return immediately

	n, err := job.Result()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf[:n])
	job.Recycle()

	// Give a double-delivery a chance to show up.
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, fired.Load())
}

// TestAsyncIO_TaskNotifierRoundTrip drives the engine from a cooperative
// task: the loop goroutine runs the poller, the task suspends through a
// task-bound notifier, and resumption must land back on the loop goroutine.
func TestAsyncIO_TaskNotifierRoundTrip(t *testing.T) {
	p, err := reactor.NewPoller()
	require.NoError(t, err)
	l, err := loop.New(p)
	require.NoError(t, err)
	engine, err := aio.New(p, aio.WithWorkers(2))
	require.NoError(t, err)

	fd := tempFD(t)
	payload := []byte("task notifier round-trip")

	var onLoop bool
	var got []byte
	var taskErr error
	l.Spawn(func(task *loop.Task) {
		defer l.Stop()
		if _, taskErr = engine.Pwrite(payload, fd, 0, notify.NewTask(task)); taskErr != nil {
			return
		}
		// Resumed by the completion drain, yet still stepped by the loop.
		onLoop = l.Current() == task
		if taskErr = engine.Fsync(fd, notify.NewTask(task)); taskErr != nil {
			return
		}
		back := make([]byte, len(payload))
		n, err := engine.Pread(back, fd, 0, notify.NewTask(task))
		if err != nil {
			taskErr = err
			return
		}
		got = back[:n]
	})

	done := make(chan error, 1)
	go func() { done <- l.Run() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("task-bound completion never resumed the loop")
	}

	require.NoError(t, taskErr)
	require.True(t, onLoop, "task resumed off the loop goroutine")
	require.Equal(t, payload, got)

	require.NoError(t, engine.Destroy())
	require.NoError(t, l.Close())
	require.NoError(t, p.Close())
}

// TestAsyncIO_ContextFactoryPanicFailsConstructor: a factory that cannot
// build a context must fail New with the cause, not hand back a pool of
// broken workers.
func TestAsyncIO_ContextFactoryPanicFailsConstructor(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p,
		aio.WithWorkers(2),
		aio.WithContextFactory(api.ContextFactoryFunc(func() api.Context {
			panic("no native handle available")
		})),
	)
	require.Error(t, err)
	require.Nil(t, engine)
	require.Contains(t, err.Error(), "context factory panic")
}

// TestAsyncIO_DestroyWithInflight launches more work than the pool can
// finish and requires a bounded, clean teardown.
func TestAsyncIO_DestroyWithInflight(t *testing.T) {
	p := startPoller(t)
	engine, err := aio.New(p, aio.WithWorkers(2))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Errors are fine: requests may be completed or canceled.
			_ = engine.Blocking().Call(func(api.Context) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			})
		}()
	}
	time.Sleep(10 * time.Millisecond)

	destroyed := make(chan error, 1)
	go func() { destroyed <- engine.Destroy() }()

	select {
	case err := <-destroyed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Destroy hung with in-flight requests")
	}

	waiters := make(chan struct{})
	go func() { wg.Wait(); close(waiters) }()
	select {
	case <-waiters:
	case <-time.After(5 * time.Second):
		t.Fatal("a caller was left suspended after Destroy")
	}

	require.ErrorIs(t, engine.Destroy(), api.ErrEngineClosed)
	_, err = engine.Blocking().Pread(make([]byte, 1), -1, 0)
	require.ErrorIs(t, err, api.ErrEngineClosed)
}
