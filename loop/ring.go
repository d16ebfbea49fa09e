// File: loop/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growable power-of-two ring used as the loop's run queue. Callers hold the
// loop mutex; the ring itself is not synchronized.

package loop

type taskRing struct {
	data []*Task
	mask uint64
	head uint64
	tail uint64
}

func newTaskRing(size uint64) *taskRing {
	size = nextPowerOfTwo(size)
	return &taskRing{
		data: make([]*Task, size),
		mask: size - 1,
	}
}

// push appends a task, doubling the backing array when full.
func (r *taskRing) push(t *Task) {
	if r.tail-r.head == uint64(len(r.data)) {
		r.grow()
	}
	r.data[r.tail&r.mask] = t
	r.tail++
}

// pop removes the oldest task, or returns nil when empty.
func (r *taskRing) pop() *Task {
	if r.head == r.tail {
		return nil
	}
	t := r.data[r.head&r.mask]
	r.data[r.head&r.mask] = nil
	r.head++
	return t
}

func (r *taskRing) len() int {
	return int(r.tail - r.head)
}

func (r *taskRing) grow() {
	bigger := make([]*Task, len(r.data)*2)
	n := 0
	for r.head != r.tail {
		bigger[n] = r.data[r.head&r.mask]
		r.head++
		n++
	}
	r.data = bigger
	r.mask = uint64(len(bigger) - 1)
	r.head = 0
	r.tail = uint64(n)
}

func nextPowerOfTwo(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}
