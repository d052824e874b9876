package scheduler

import (
	"sync"

	"github.com/hayabusa-cloud/lfq"
)

// parkHandle is the goroutine wake-handle stored in the idle-goroutine
// queue: a host-runtime-opaque token that a producer can unpark by
// sending on wake. Buffered to size 1 so an unpark that races a park never
// blocks the sender and a wake observed before the receiver actually
// blocks is not lost.
type parkHandle struct {
	wake chan struct{}
}

func newParkHandle() *parkHandle {
	return &parkHandle{wake: make(chan struct{}, 1)}
}

func (h *parkHandle) unpark() {
	select {
	case h.wake <- struct{}{}:
	default:
		// Already has a pending wake queued; nothing more to do.
	}
}

// lfqMinCapacity mirrors lfq's own floor: it panics if asked to build a
// queue with capacity below 2. A pool with 1 or 2 workers has an
// idle-goroutine capacity of 0 or 1, below that floor, so those sizes fall
// back to a plain mutex-guarded slice. Everywhere else the hot path is the
// lock-free lfq queue.
const lfqMinCapacity = 2

// idleQueue is the fixed-capacity MPMC queue of parked wake-handles. Its
// "push fails because full" condition is the sole quiescence signal, so it
// must never report spuriously-empty while a handle is actually queued.
// The default FAA/SCQ MPMC carries a threshold mechanism that can make
// Dequeue return ErrWouldBlock with items still queued until a producer
// bumps the threshold again (see lfq's "Graceful Shutdown" doc); building
// with Compact() selects the sequence-based MPMC instead, which has no
// such threshold, so tryPop's "nothing registered" really means nothing
// registered.
type idleQueue struct {
	capacity int

	lockfree lfq.Queue[*parkHandle]

	mu    sync.Mutex
	small []*parkHandle
}

func newIdleQueue(capacity int) *idleQueue {
	q := &idleQueue{capacity: capacity}
	if capacity >= lfqMinCapacity {
		q.lockfree = lfq.BuildMPMC[*parkHandle](lfq.New(capacity).Compact())
	} else {
		q.small = make([]*parkHandle, 0, capacity)
	}
	return q
}

// tryPush attempts to register h as idle. Returns false if the queue is at
// capacity, signaling to the caller that it is the last non-idle goroutine.
func (q *idleQueue) tryPush(h *parkHandle) bool {
	if q.lockfree != nil {
		return q.lockfree.Enqueue(&h) == nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.small) >= q.capacity {
		return false
	}
	q.small = append(q.small, h)
	return true
}

// tryPop removes and returns one registered handle, if any.
func (q *idleQueue) tryPop() (*parkHandle, bool) {
	if q.lockfree != nil {
		h, err := q.lockfree.Dequeue()
		if err != nil {
			return nil, false
		}
		return h, true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.small)
	if n == 0 {
		return nil, false
	}
	h := q.small[n-1]
	q.small = q.small[:n-1]
	return h, true
}

// drainAll pops and unparks every currently-registered handle. Used only
// by ShutDown.
func (q *idleQueue) drainAll() {
	for {
		h, ok := q.tryPop()
		if !ok {
			return
		}
		h.unpark()
	}
}
