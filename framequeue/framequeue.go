/*
NAME
  framequeue.go

DESCRIPTION
  framequeue provides the bounded FIFO queue of frame-pool slots shared
  between a decoder's producer thread and its caller: a free queue of
  slots ready for reuse and a ready queue of slots carrying decoded
  frames. Each Queue owns its own mutex and condition variables, matching
  the blocking-with-timeout bounded-queue contract the decoder/encoder
  cores are built on.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package framequeue provides the fixed frame pool and the two bounded
// FIFO queues (free/ready) that circulate its slots.
package framequeue

import (
	"sync"
	"time"

	"github.com/ausocean/pollux/avutil"
)

// Slot is one pool-owned frame plus the metadata a producer stamps onto it
// on its way through the ready queue.
type Slot struct {
	Frame *avutil.Frame
	// id is the slot's fixed index into the owning Pool, used only for
	// diagnostics; it never changes for the slot's lifetime.
	id int
}

// Queue is a bounded FIFO of *Slot, blocking-with-timeout on Get, backed
// by its own mutex and a not-empty/not-full pair of condition variables.
// The zero Queue is not usable;
// construct one with NewQueue.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []*Slot
	cap      int
	closed   bool
}

// NewQueue returns an empty Queue with room for cap slots.
func NewQueue(cap int) *Queue {
	q := &Queue{cap: cap}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Put pushes s onto the tail of q, blocking if q is already at capacity.
// It returns false if q has been closed (the decoder is exiting) instead
// of blocking forever.
func (q *Queue) Put(s *Slot) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) >= q.cap && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}
	q.buf = append(q.buf, s)
	q.notEmpty.Signal()
	return true
}

// TryGet pops the head slot of q without blocking, reporting ok=false if
// q is currently empty.
func (q *Queue) TryGet() (s *Slot, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil, false
	}
	return q.pop(), true
}

// Get pops the head slot of q, blocking up to timeout for one to become
// available. A timeout of 0 behaves like TryGet (non-blocking poll); a
// negative timeout blocks indefinitely. ok is false on timeout or if q
// was closed while waiting.
func (q *Queue) Get(timeout time.Duration) (s *Slot, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 && q.closed {
		return nil, false
	}
	if len(q.buf) == 0 {
		if timeout == 0 {
			return nil, false
		}
		if timeout < 0 {
			for len(q.buf) == 0 && !q.closed {
				q.notEmpty.Wait()
			}
		} else {
			q.waitTimeout(timeout)
		}
	}
	if len(q.buf) == 0 {
		return nil, false
	}
	return q.pop(), true
}

// waitTimeout blocks on notEmpty for up to timeout. sync.Cond has no
// native timed wait, so a helper goroutine broadcasts once the deadline
// passes; this mirrors the 1ms-timeout poll the decoder's producer uses
// to observe exit_flag without a busy loop.
func (q *Queue) waitTimeout(timeout time.Duration) {
	deadline := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		close(deadline)
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	for len(q.buf) == 0 && !q.closed {
		select {
		case <-deadline:
			return
		default:
		}
		q.notEmpty.Wait()
	}
}

func (q *Queue) pop() *Slot {
	s := q.buf[0]
	q.buf = q.buf[1:]
	q.notFull.Signal()
	return s
}

// Len reports the number of slots currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Close marks q closed, waking every blocked Get/Put so they return
// ok=false instead of stalling a shutdown. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Pool owns a fixed array of pre-allocated slots and the Free/Ready
// queues they circulate through. A slot belongs to exactly one queue, or
// to a caller that has a pending Get/Put, at any instant.
type Pool struct {
	Slots []*Slot
	Free  *Queue
	Ready *Queue
}

// NewPool allocates n frames (clamped to [1,1024]) via alloc, wraps each
// in a Slot, and pushes every slot onto the free queue. alloc is called
// once per slot; a typical caller passes backend.FrameAlloc bound to a
// fixed avutil.ImageDescriptor (or the zero descriptor for raw
// passthrough). If alloc fails partway through, every slot allocated so
// far is released via free (in reverse order) before returning err.
func NewPool(n int, alloc func() (*avutil.Frame, error), free func(*avutil.Frame)) (*Pool, error) {
	n = Clamp(n)
	p := &Pool{
		Slots: make([]*Slot, 0, n),
		Free:  NewQueue(n),
		Ready: NewQueue(n),
	}
	for i := 0; i < n; i++ {
		f, err := alloc()
		if err != nil {
			for j := len(p.Slots) - 1; j >= 0; j-- {
				free(p.Slots[j].Frame)
			}
			return nil, err
		}
		s := &Slot{Frame: f, id: i}
		p.Slots = append(p.Slots, s)
		p.Free.Put(s)
	}
	return p, nil
}

// Close closes both queues, unblocking any goroutine waiting on Get/Put.
// It does not free the slots' frames; the caller (decoder.Release) frees
// each slot's backend-owned memory explicitly since only it knows which
// free function applies.
func (p *Pool) Close() {
	p.Free.Close()
	p.Ready.Close()
}

// Clamp restricts n to the legal pool-size range [1, 1024], per the
// cache_count clamping rule.
func Clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > 1024 {
		return 1024
	}
	return n
}
